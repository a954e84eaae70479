package main

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitArchivePath(t *testing.T) {
	tests := []struct {
		name       string
		wantPrefix string
		wantRel    string
	}{
		{"store/axon.db", "store", "axon.db"},
		{"store/sub/file.txt", "store", "sub/file.txt"},
		{"store/sub/", "store", "sub"},
		{"./store/axon.db", "store", "axon.db"},
		{"store", "store", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		prefix, rel := splitArchivePath(tt.name)
		if prefix != tt.wantPrefix || rel != tt.wantRel {
			t.Errorf("splitArchivePath(%q) = (%q, %q), want (%q, %q)",
				tt.name, prefix, rel, tt.wantPrefix, tt.wantRel)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "axon.db"), []byte("db contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "inner.txt"), []byte("inner"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	n, err := addTree(tw, src, prefixStore)
	if err != nil {
		t.Fatalf("addTree: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 files archived, got %d", n)
	}

	dst := t.TempDir()
	restored, err := extractArchive(tar.NewReader(&buf), map[string]string{prefixStore: dst})
	if err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	if restored != 2 {
		t.Errorf("expected 2 files restored, got %d", restored)
	}

	data, err := os.ReadFile(filepath.Join(dst, "axon.db"))
	if err != nil || string(data) != "db contents" {
		t.Errorf("db file not restored: %q, %v", data, err)
	}
	data, err = os.ReadFile(filepath.Join(dst, "nested", "inner.txt"))
	if err != nil || string(data) != "inner" {
		t.Errorf("nested file not restored: %q, %v", data, err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "store/../../etc/evil",
		Typeflag: tar.TypeReg,
		Size:     0,
		Mode:     0o644,
	}); err != nil {
		t.Fatal(err)
	}
	tw.Close()

	_, err := extractArchive(tar.NewReader(&buf), map[string]string{prefixStore: t.TempDir()})
	if err == nil {
		t.Error("expected traversal entry to be rejected")
	}
}

func TestMissingSourceDirIsEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	n, err := addTree(tw, filepath.Join(t.TempDir(), "does-not-exist"), prefixStore)
	if err != nil {
		t.Fatalf("addTree on missing dir: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 files, got %d", n)
	}
}
