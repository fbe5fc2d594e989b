package iometer

//go:generate mockgen -destination=mock/reader.go -package=mock_iometer io ReadCloser

import (
	"io"
	"sync/atomic"
)

// TransferReader wraps an io.Reader and counts the number of bytes read
// from it. Every successful read reports the running total to onRead.
type TransferReader struct {
	reader io.Reader

	// transferredSize stores the number of bytes transferred
	transferredSize atomic.Int64

	// onRead is called with the running total after each read, may be nil
	onRead func(transferred int64)

	// closed is a flag that indicates if the reader is closed
	closed atomic.Bool
}

// NewTransferReader constructs a new TransferReader.
func NewTransferReader(reader io.Reader, onRead func(transferred int64)) (tr *TransferReader) {
	tr = &TransferReader{
		reader: reader,
		onRead: onRead,
	}
	return
}

// Read reads from the underlying reader and increments the counter.
func (tr *TransferReader) Read(p []byte) (n int, err error) {
	n, err = tr.reader.Read(p)
	if n > 0 {
		total := tr.transferredSize.Add(int64(n))
		if tr.onRead != nil && !tr.closed.Load() {
			tr.onRead(total)
		}
	}
	return
}

// Close closes the underlying io.Reader if it implements the
// io.Closer interface. No read is reported after Close.
func (tr *TransferReader) Close() (err error) {
	if !tr.closed.CompareAndSwap(false, true) {
		return
	}
	if closer, ok := tr.reader.(io.Closer); ok {
		err = closer.Close()
	}
	return
}

// TransferredSize returns the number of bytes transferred.
func (tr *TransferReader) TransferredSize() int64 {
	return tr.transferredSize.Load()
}
