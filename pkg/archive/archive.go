// Package archive packs a file or directory into a single tar+gzip byte
// stream ahead of the frame codec, and unpacks it back to disk afterward.
// This is spec.md §6's "Input packager" collaborator — the core never
// calls it; cmd/sllv wires it ahead of (optional) encryption.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Pack walks path (a single file or a directory tree) into a tar archive,
// gzip-compresses it, and returns the resulting bytes along with the base
// name to record in the manifest's file_name field.
func Pack(path string) ([]byte, string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("archive: stat %s: %w", path, err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	// Entries are recorded relative to path's parent, so both a single
	// file and a directory tree unpack under their own base name.
	walkRoot := filepath.Dir(path)

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		return addTarEntry(tw, p, rel, d)
	})
	if err != nil {
		return nil, "", fmt.Errorf("archive: packing %s: %w", path, err)
	}

	if err := tw.Close(); err != nil {
		return nil, "", fmt.Errorf("archive: closing tar writer: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, "", fmt.Errorf("archive: closing gzip writer: %w", err)
	}

	return buf.Bytes(), filepath.Base(path), nil
}

func addTarEntry(tw *tar.Writer, fullPath, relPath string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(relPath)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if d.IsDir() {
		return nil
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// Unpack reverses Pack: it gunzips and untars data into destDir, recreating
// the directory structure Pack recorded, and returns the number of entries
// extracted.
func Unpack(data []byte, destDir string) (int, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("archive: opening gzip stream: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	count := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("archive: reading tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, fmt.Errorf("archive: creating dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return count, fmt.Errorf("archive: creating dir for %s: %w", target, err)
			}
			if err := writeRegularFile(target, tr, header); err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}

func writeRegularFile(target string, r io.Reader, header *tar.Header) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode))
	if err != nil {
		return fmt.Errorf("archive: creating %s: %w", target, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("archive: writing %s: %w", target, err)
	}
	return nil
}
