package protoc

import "errors"

var ErrS3ClientConfigInvalid = errors.New("client: config invalid, expected S3")
var ErrS3ClientNotConfigured = errors.New("client: unable to configure S3 API")
