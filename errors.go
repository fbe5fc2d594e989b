package upxfer

import "errors"

var (
	ErrInit         = errors.New("upload: unable to initiate multipart upload")
	ErrPresign      = errors.New("upload: unable to presign part urls")
	ErrPartTransfer = errors.New("upload: part transfer failed")
	ErrFinalize     = errors.New("upload: unable to finalize multipart upload")
	ErrAborted      = errors.New("upload: aborted")
	ErrFileRejected = errors.New("upload: file rejected")
	ErrEngineClosed = errors.New("engine: closed")
)

var (
	ErrList     = errors.New("remote: unable to list objects")
	ErrDelete   = errors.New("remote: unable to delete object")
	ErrShare    = errors.New("remote: unable to share object")
	ErrDownload = errors.New("remote: unable to download object")
)
