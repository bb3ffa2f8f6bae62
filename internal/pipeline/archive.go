package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveStage packages the working tree into the zip artifact shipped to
// the hosting slot
type ArchiveStage struct{}

// NewArchiveStage creates the packaging stage
func NewArchiveStage() *ArchiveStage {
	return &ArchiveStage{}
}

// Name returns the stage name
func (s *ArchiveStage) Name() string {
	return StagePackage
}

// Run zips the working tree, leaving out the workflow's excluded paths and
// the run's own provisioning artifacts
func (s *ArchiveStage) Run(ctx context.Context, rc *RunContext) error {
	excludes := append(rc.Workflow.Excludes(), ".slotship-venv")

	archivePath := rc.Workdir + ".zip"
	count, size, err := buildArchive(rc.Workdir, archivePath, excludes)
	if err != nil {
		return err
	}

	rc.ArchivePath = archivePath
	fmt.Fprintf(rc.Output, "Packaged %d files (%d bytes) into %s\n",
		count, size, filepath.Base(archivePath))

	return nil
}

// buildArchive writes the zip artifact and returns the file count and
// archive size
func buildArchive(root, archivePath string, excludes []string) (int, int64, error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return 0, 0, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	count := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(w, f); err != nil {
			return err
		}

		count++
		return nil
	})
	if err != nil {
		zw.Close()
		return 0, 0, fmt.Errorf("package working tree: %w", err)
	}

	if err := zw.Close(); err != nil {
		return 0, 0, fmt.Errorf("finalize archive: %w", err)
	}

	info, err := out.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat archive: %w", err)
	}

	return count, info.Size(), nil
}

// excluded reports whether a slash-separated relative path matches an
// exclusion. Bare names match any path segment; entries containing a slash
// match as relative path prefixes.
func excluded(rel string, excludes []string) bool {
	segments := strings.Split(rel, "/")

	for _, ex := range excludes {
		ex = strings.Trim(ex, "/")
		if ex == "" {
			continue
		}

		if strings.Contains(ex, "/") {
			if rel == ex || strings.HasPrefix(rel, ex+"/") {
				return true
			}
			continue
		}

		for _, seg := range segments {
			if seg == ex {
				return true
			}
		}
	}

	return false
}
