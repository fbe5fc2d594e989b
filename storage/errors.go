package storage

import "errors"

var ErrS3ProtocolClientInvalid = errors.New("protocol: client invalid, expected S3")
var ErrObjectNotFound = errors.New("object not found")
var ErrPartURLCountMismatch = errors.New("presigned part URL count mismatch")
