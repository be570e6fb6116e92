package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mholt/archives"
)

// PackDirectory tars and gzips dir into a temporary file and rewinds
// it, ready to hand to an Archiver's Archive method (spec.md §3: the
// archive operation archives a task's working directory, not a single
// caller-supplied file). The caller must Close the returned file; its
// name is removed once closed.
func PackDirectory(ctx context.Context, dir string) (*PackedArchive, error) {
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{dir: ""})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", dir, err)
	}

	out, err := os.CreateTemp("", "jobweave-archive-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("create archive temp file: %w", err)
	}

	format := archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}
	if err := format.Archive(ctx, out, files); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("archive %s: %w", dir, err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("rewind archive: %w", err)
	}
	info, err := out.Stat()
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &PackedArchive{File: out, size: info.Size()}, nil
}

// PackedArchive is a packed archive file that deletes itself on Close.
type PackedArchive struct {
	*os.File
	size int64
}

func (t *PackedArchive) Size() int64 { return t.size }

func (t *PackedArchive) Close() error {
	err := t.File.Close()
	os.Remove(t.File.Name())
	return err
}
