package storage

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock/gateway.go -package=mock_storage . Gateway

// RemoteObjectEntry is one item of a bucket listing. IsPrefix entries are
// "directories" returned by a delimited listing and carry no size.
type RemoteObjectEntry struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	IsPrefix bool   `json:"isPrefix"`
}

// CompletedPart is the confirmation of one uploaded part.
type CompletedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// Gateway is the object storage backend the upload engine drives.
type Gateway interface {
	// CreateMultipartUpload starts a multipart upload for the given key.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - key: the destination object key
	//  - contentType: the MIME type stored with the object, may be empty
	//
	// Returns:
	//  - uploadID: the identifier of the multipart upload
	//  - objectKey: the key the backend acknowledged
	//  - err: the error if any occurred, nil otherwise
	CreateMultipartUpload(ctx context.Context, key, contentType string) (uploadID, objectKey string, err error)

	// PresignPartURLs returns one presigned PUT URL per part. The URL at index i
	// belongs to part number i+1.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - uploadID: the identifier of the multipart upload
	//  - key: the destination object key
	//  - partCount: the number of parts
	//
	// Returns:
	//  - urls: the presigned URLs
	//  - err: the error if any occurred, nil otherwise
	PresignPartURLs(ctx context.Context, uploadID, key string, partCount int) (urls []string, err error)

	// CompleteMultipartUpload assembles the uploaded parts into the final object.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - uploadID: the identifier of the multipart upload
	//  - key: the destination object key
	//  - parts: the completed parts, sorted ascending by part number
	//
	// Returns:
	//  - err: the error if any occurred, nil otherwise
	CompleteMultipartUpload(ctx context.Context, uploadID, key string, parts []CompletedPart) (err error)

	// AbortMultipartUpload discards a multipart upload and its uploaded parts.
	// Aborting an unknown upload is not an error.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - uploadID: the identifier of the multipart upload
	//  - key: the destination object key
	//
	// Returns:
	//  - err: the error if any occurred, nil otherwise
	AbortMultipartUpload(ctx context.Context, uploadID, key string) (err error)

	// ListObjects returns one page of objects under the prefix. With a non-empty
	// delimiter only the first level is returned and sub-levels are folded into
	// prefix entries.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - prefix: the key prefix, may be empty
	//  - delimiter: the hierarchy delimiter, may be empty
	//  - maxKeys: the maximum number of keys in the page
	//
	// Returns:
	//  - entries: the objects and prefixes of the page
	//  - err: the error if any occurred, nil otherwise
	ListObjects(ctx context.Context, prefix, delimiter string, maxKeys int32) (entries []RemoteObjectEntry, err error)

	// DeleteObject removes an object.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - key: the object key
	//
	// Returns:
	//  - err: ErrObjectNotFound when the key does not exist, nil on success
	DeleteObject(ctx context.Context, key string) (err error)

	// PresignDownloadURL returns a presigned GET URL for an object.
	//
	// Parameters:
	//  - ctx: the context of the request
	//  - key: the object key
	//  - expiry: how long the URL stays valid
	//
	// Returns:
	//  - url: the presigned URL
	//  - err: the error if any occurred, nil otherwise
	PresignDownloadURL(ctx context.Context, key string, expiry time.Duration) (url string, err error)

	// Close releases the resources held by the gateway.
	Close()
}
