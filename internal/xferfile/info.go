package xferfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/derektruong/upxfer/internal/fileutils"
	"github.com/gabriel-vasile/mimetype"
)

var ErrFileNotExists = errors.New("file path does not exist")
var ErrNotRegularFile = errors.New("file path is not a regular file")

// Info represents information about a local file queued for upload.
type Info struct {
	// Path is the local path of the file, empty for in-memory sources
	Path string `json:"path"`

	// Name is the base name of the file, extension included. It is the last
	// segment of the object key.
	Name string `json:"name"`

	// Extension contains the file extension of the file, without the dot.
	Extension string `json:"extension"`

	// Size is the size of the file in bytes
	Size int64 `json:"size"`

	// ModTime is the modification time of the local file
	ModTime time.Time `json:"modTime"`

	// ContentType is the detected MIME type of the file
	ContentType string `json:"contentType"`
}

// Stat reads the information of the file at path and detects its content type.
func Stat(path string) (info Info, err error) {
	var fi fs.FileInfo
	if fi, err = os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrFileNotExists, path)
		}
		return
	}
	if !fi.Mode().IsRegular() {
		err = fmt.Errorf("%w: %s", ErrNotRegularFile, path)
		return
	}

	var mime *mimetype.MIME
	if mime, err = mimetype.DetectFile(path); err != nil {
		return
	}

	var ext string
	if _, _, ext, err = fileutils.ExtractFileParts(path); err != nil {
		return
	}

	info = Info{
		Path:        path,
		Name:        filepath.Base(path),
		Extension:   ext,
		Size:        fi.Size(),
		ModTime:     fi.ModTime(),
		ContentType: mime.String(),
	}
	return
}

// FromName builds the information of an in-memory source. The content type is
// detected from the leading bytes when head is not empty.
func FromName(name string, size int64, head []byte) (info Info) {
	_, _, ext, _ := fileutils.ExtractFileParts(name)
	info = Info{
		Name:      filepath.Base(name),
		Extension: ext,
		Size:      size,
		ModTime:   time.Now(),
	}
	if len(head) > 0 {
		info.ContentType = mimetype.Detect(head).String()
	}
	return
}
