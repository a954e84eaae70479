package main

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/axonworks/axon/internal/config"
)

// Archive prefixes mapping entries back to their target directories.
const (
	prefixStore  = "store"
	prefixEvents = "events"
)

func runBackup(args []string) error {
	var outputPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "-f" {
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		}
	}
	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: axon backup -f <output.tar.zst>\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	roots := backupRoots(cfg)
	files := 0
	for prefix, root := range roots {
		n, err := addTree(tw, root, prefix)
		if err != nil {
			return fmt.Errorf("archive %s: %w", root, err)
		}
		files += n
		slog.Info("archived", "dir", root, "prefix", prefix, "files", n)
	}

	// Close everything explicitly to catch write errors
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	info, _ := os.Stat(outputPath)
	size := int64(0)
	if info != nil {
		size = info.Size()
	}

	fmt.Printf("Backup complete: %d files, %s\n", files, formatSize(size))
	return nil
}

func runRestore(args []string) error {
	var inputPath string
	overwrite := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			inputPath = args[i]
		case "-overwrite":
			overwrite = true
		}
	}
	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: axon restore -f <backup.tar.zst> [-overwrite]\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roots := backupRoots(cfg)
	if !overwrite {
		for _, root := range roots {
			if dirHasEntries(root) {
				return fmt.Errorf("%s is not empty, add -overwrite to replace files", root)
			}
		}
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	restored, err := extractArchive(tar.NewReader(zr), roots)
	if err != nil {
		return err
	}

	fmt.Printf("Restore complete: %d files\n", restored)
	return nil
}

// backupRoots maps archive prefixes to the directories they cover. The
// events directory is skipped when it already lives under the store
// directory, so nothing is archived twice.
func backupRoots(cfg *config.Config) map[string]string {
	storeDir := filepath.Dir(cfg.Store.Path)
	roots := map[string]string{prefixStore: storeDir}

	eventsDir := cfg.Events.DataDir
	if eventsDir != "" && !strings.HasPrefix(eventsDir, storeDir+string(filepath.Separator)) && eventsDir != storeDir {
		roots[prefixEvents] = eventsDir
	}
	return roots
}

func addTree(tw *tar.Writer, root, prefix string) (int, error) {
	files := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return nil // nothing to archive yet
			}
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil // skip sockets, symlinks
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = path.Join(prefix, filepath.ToSlash(rel))
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			src, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, src)
			src.Close()
			if err != nil {
				return err
			}
			files++
		}
		return nil
	})
	return files, err
}

func extractArchive(tr *tar.Reader, roots map[string]string) (int, error) {
	restored := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return restored, fmt.Errorf("read tar entry: %w", err)
		}

		prefix, rel := splitArchivePath(hdr.Name)
		root, ok := roots[prefix]
		if !ok || rel == "" {
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, filepath.Clean(root)+string(filepath.Separator)) {
			return restored, fmt.Errorf("archive entry escapes target dir: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return restored, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return restored, err
			}
			dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return restored, err
			}
			_, err = io.Copy(dst, tr)
			dst.Close()
			if err != nil {
				return restored, fmt.Errorf("write %s: %w", target, err)
			}
			restored++
		}
	}
	return restored, nil
}

// splitArchivePath splits "store/some/file" into ("store", "some/file").
func splitArchivePath(name string) (prefix, rel string) {
	name = strings.TrimLeft(name, "./")
	if name == "" {
		return "", ""
	}

	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], strings.TrimSuffix(name[idx+1:], "/")
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
