package upxfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/derektruong/upxfer/internal/fileutils"
	"github.com/derektruong/upxfer/internal/xferfile"
)

// sniffLen is the number of leading bytes used to detect a content type.
const sniffLen = 3072

// FileHandle is a file the engine can upload. Parts are read concurrently
// through ReadAt. When the handle also implements io.Closer, the engine
// closes it once its upload terminates.
type FileHandle interface {
	io.ReaderAt
	// Name is the last segment of the object key
	Name() string
	// Size is the number of bytes to upload
	Size() int64
	// ContentType is the MIME type stored with the object, may be empty
	ContentType() string
	// ModTime is the modification time checked by the file rules
	ModTime() time.Time
}

// File is a FileHandle backed by a local file or an in-memory reader.
type File struct {
	info   xferfile.Info
	reader io.ReaderAt
	closer io.Closer
}

var _ FileHandle = (*File)(nil)

// OpenFile opens the local file at path for upload.
func OpenFile(path string) (f *File, err error) {
	var info xferfile.Info
	if info, err = xferfile.Stat(path); err != nil {
		return
	}
	var osFile *os.File
	if osFile, err = os.Open(path); err != nil {
		return
	}
	f = &File{
		info:   info,
		reader: osFile,
		closer: osFile,
	}
	return
}

// OpenGlob opens every regular file matching the pattern. Patterns support
// "**" to match any number of directories.
func OpenGlob(pattern string) (files []FileHandle, err error) {
	var paths []string
	if paths, err = doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly()); err != nil {
		return
	}

	files = make([]FileHandle, 0, len(paths))
	for _, path := range paths {
		var f *File
		if f, err = OpenFile(path); err != nil {
			err = errors.Join(err, closeHandles(files))
			files = nil
			return
		}
		files = append(files, f)
	}
	return
}

// NewFileHandle wraps an in-memory reader of the given size. The content type
// is detected from the leading bytes. A negative size counts as empty and a
// nil reader as an empty reader.
func NewFileHandle(name string, reader io.ReaderAt, size int64) (f *File) {
	size = max(size, 0)
	if reader == nil {
		reader, size = bytes.NewReader(nil), 0
	}
	head := make([]byte, min(size, sniffLen))
	n, _ := reader.ReadAt(head, 0)
	f = &File{
		info:   xferfile.FromName(name, size, head[:n]),
		reader: reader,
	}
	if closer, ok := reader.(io.Closer); ok {
		f.closer = closer
	}
	return
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.reader.ReadAt(p, off)
}

func (f *File) Name() string {
	return f.info.Name
}

func (f *File) Size() int64 {
	return f.info.Size
}

func (f *File) ContentType() string {
	return f.info.ContentType
}

func (f *File) ModTime() time.Time {
	return f.info.ModTime
}

// Path returns the local path of the file, empty for in-memory readers.
func (f *File) Path() string {
	return f.info.Path
}

func (f *File) Close() (err error) {
	if f.closer == nil {
		return
	}
	err = f.closer.Close()
	f.closer = nil
	return
}

// fileInfoOf returns the information the file rules are checked against.
func fileInfoOf(handle FileHandle) xferfile.Info {
	if f, ok := handle.(*File); ok {
		return f.info
	}
	_, _, ext, _ := fileutils.ExtractFileParts(handle.Name())
	return xferfile.Info{
		Name:        handle.Name(),
		Extension:   ext,
		Size:        handle.Size(),
		ModTime:     handle.ModTime(),
		ContentType: handle.ContentType(),
	}
}

func closeHandle(handle FileHandle) error {
	if closer, ok := handle.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close %s: %w", handle.Name(), err)
		}
	}
	return nil
}

func closeHandles(handles []FileHandle) (err error) {
	for _, handle := range handles {
		err = errors.Join(err, closeHandle(handle))
	}
	return
}
