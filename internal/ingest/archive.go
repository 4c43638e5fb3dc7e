package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// InstallArchive copies a zip archive from the host filesystem to
// destDir/destName on fs, extracts its full contents into destDir and
// removes the copied archive. Extraction refuses member names that
// would escape destDir.
func InstallArchive(fs billy.Filesystem, archivePath, destDir, destName string) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = src.Close() }()

	if err := fs.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	archiveDest := path.Join(destDir, destName)
	dst, err := fs.Create(archiveDest)
	if err != nil {
		return fmt.Errorf("create %s: %w", archiveDest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = fs.Remove(archiveDest)
		return fmt.Errorf("copy archive to %s: %w", archiveDest, err)
	}
	if err := dst.Close(); err != nil {
		_ = fs.Remove(archiveDest)
		return fmt.Errorf("close %s: %w", archiveDest, err)
	}

	if err := extractZip(fs, archiveDest, destDir); err != nil {
		_ = fs.Remove(archiveDest)
		return err
	}
	if err := fs.Remove(archiveDest); err != nil {
		return fmt.Errorf("remove extracted archive %s: %w", archiveDest, err)
	}
	return nil
}

func extractZip(fs billy.Filesystem, archive, destDir string) error {
	f, err := fs.Open(archive)
	if err != nil {
		return fmt.Errorf("open %s: %w", archive, err)
	}
	defer func() { _ = f.Close() }()

	info, err := fs.Stat(archive)
	if err != nil {
		return fmt.Errorf("stat %s: %w", archive, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("read zip %s: %w", archive, err)
	}

	for _, member := range zr.File {
		dest, err := memberPath(destDir, member.Name)
		if err != nil {
			return err
		}
		if member.FileInfo().IsDir() {
			if err := fs.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			continue
		}
		if err := extractMember(fs, member, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractMember(fs billy.Filesystem, member *zip.File, dest string) error {
	if dir := path.Dir(dest); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("open zip member %s: %w", member.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := fs.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", member.Name, err)
	}
	return out.Close()
}

// memberPath resolves a zip member name inside destDir, rejecting
// absolute names and traversal outside the destination.
func memberPath(destDir, name string) (string, error) {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("zip member escapes destination: %s", name)
	}
	return path.Join(destDir, clean), nil
}
