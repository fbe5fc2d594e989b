// Package s3 provides the storage gateway for AWS S3 or compatible servers.
//
// In order to allow this gateway to function properly, the user accessing the
// bucket must have at least following AWS IAM policy permissions for the
// bucket and all of its sub resources:
//
//	s3:AbortMultipartUpload
//	s3:DeleteObject
//	s3:GetObject
//	s3:ListBucket
//	s3:PutObject
//
// While this package uses the official AWS SDK for Go, Gateway is able to
// work with any S3-compatible service such as MinIO. In order to change the
// HTTP endpoint used for sending requests to, set the endpoint of the
// protoc/s3 client.
//
// # Implementation
//
// The gateway never moves object bytes itself. A multipart upload is created
// through the S3 API, then every part gets its own presigned PUT URL which
// the engine uploads to directly. Once all parts are confirmed, the collected
// ETags are sent back with CompleteMultipartUpload. Downloads work the same
// way through a presigned GET URL.
//
// # Considerations
//
// AWS S3 allows at most 10000 parts per multipart upload and every part but
// the last one must be at least 5 MiB. The chunk size of the engine must be
// chosen accordingly for very large files.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/derektruong/upxfer/protoc"
	"github.com/derektruong/upxfer/protoc/s3"
	"github.com/derektruong/upxfer/storage"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var _ storage.Gateway = (*Gateway)(nil)

type Gateway struct {
	// MaxMultipartParts is the maximum number of parts an S3 multipart upload is
	// allowed to have according to AWS S3 API specifications.
	// See: http://docs.aws.amazon.com/AmazonS3/latest/dev/qfacts.html
	MaxMultipartParts int

	// PresignConcurrency limits the number of part URLs signed in parallel.
	PresignConcurrency int

	// bucket is the S3 bucket every operation targets
	bucket string

	// api is the S3 API used for the multipart lifecycle and listing
	api protoc.S3API

	// presign is the API used to presign part and object URLs
	presign protoc.PresignAPI

	// logger: An instance of logr.Logger for logging purposes.
	logger logr.Logger
}

// NewGateway constructs a new gateway over the supplied S3 client. The bucket
// is taken from the client credential.
func NewGateway(logger logr.Logger, cli protoc.Client) (g *Gateway, err error) {
	cred, ok := cli.GetCredential().(*s3.Client)
	if !ok {
		err = storage.ErrS3ProtocolClientInvalid
		return
	}

	var api protoc.S3API
	if api, err = cli.GetS3API(); err != nil {
		return
	}
	var presign protoc.PresignAPI
	if presign, err = cli.GetPresignAPI(); err != nil {
		return
	}

	g = &Gateway{
		MaxMultipartParts:  10000,
		PresignConcurrency: 16,
		bucket:             cred.BucketName,
		api:                api,
		presign:            presign,
		logger: logger.WithName("s3.gateway").WithValues(
			"bucket", cred.BucketName,
			"connectionID", cli.GetConnectionID(),
		),
	}
	return
}

func (g *Gateway) Close() {
	g.logger.Info("closed s3 gateway")
}

func (g *Gateway) CreateMultipartUpload(
	ctx context.Context,
	key, contentType string,
) (uploadID, objectKey string, err error) {
	input := &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	var res *awss3.CreateMultipartUploadOutput
	if res, err = g.api.CreateMultipartUpload(ctx, input); err != nil {
		err = fmt.Errorf("unable to create multipart upload: %w", err)
		return
	}
	if res.UploadId == nil {
		err = fmt.Errorf("unable to create multipart upload: missing upload id for %q", key)
		return
	}

	uploadID = *res.UploadId
	objectKey = key
	if res.Key != nil {
		objectKey = *res.Key
	}
	g.logger.V(1).Info("created multipart upload", "key", objectKey, "uploadID", uploadID)
	return
}

func (g *Gateway) PresignPartURLs(
	ctx context.Context,
	uploadID, key string,
	partCount int,
) (urls []string, err error) {
	if partCount < 1 || partCount > g.MaxMultipartParts {
		err = fmt.Errorf("part count out of range (%d not in [1, %d])", partCount, g.MaxMultipartParts)
		return
	}

	signed := make([]string, partCount)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.PresignConcurrency, 1))
	for i := range partCount {
		eg.Go(func() error {
			req, signErr := g.presign.PresignUploadPart(egCtx, &awss3.UploadPartInput{
				Bucket:     aws.String(g.bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(int32(i + 1)),
			})
			if signErr != nil {
				return fmt.Errorf("unable to presign part %d: %w", i+1, signErr)
			}
			signed[i] = req.URL
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return
	}

	urls = signed
	g.logger.V(1).Info("presigned part urls", "key", key, "uploadID", uploadID, "parts", partCount)
	return
}

func (g *Gateway) CompleteMultipartUpload(
	ctx context.Context,
	uploadID, key string,
	parts []storage.CompletedPart,
) (err error) {
	completedParts := lo.Map(parts, func(p storage.CompletedPart, _ int) types.CompletedPart {
		return types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	})

	if _, err = g.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	}); err != nil {
		err = fmt.Errorf("unable to complete multipart upload: %w", err)
		return
	}
	g.logger.V(1).Info("completed multipart upload", "key", key, "uploadID", uploadID, "parts", len(parts))
	return
}

func (g *Gateway) AbortMultipartUpload(ctx context.Context, uploadID, key string) (err error) {
	if _, err = g.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}); err != nil {
		if isAwsError[*types.NoSuchUpload](err) || isAwsErrorCode(err, "NoSuchUpload") {
			err = nil
			return
		}
		err = fmt.Errorf("unable to abort multipart upload: %w", err)
		return
	}
	g.logger.V(1).Info("aborted multipart upload", "key", key, "uploadID", uploadID)
	return
}

func (g *Gateway) ListObjects(
	ctx context.Context,
	prefix, delimiter string,
	maxKeys int32,
) (entries []storage.RemoteObjectEntry, err error) {
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(maxKeys)
	}

	var res *awss3.ListObjectsV2Output
	if res, err = g.api.ListObjectsV2(ctx, input); err != nil {
		err = fmt.Errorf("unable to list objects: %w", err)
		return
	}

	entries = make([]storage.RemoteObjectEntry, 0, len(res.CommonPrefixes)+len(res.Contents))
	for _, p := range res.CommonPrefixes {
		entries = append(entries, storage.RemoteObjectEntry{
			Key:      aws.ToString(p.Prefix),
			IsPrefix: true,
		})
	}
	for _, obj := range res.Contents {
		entries = append(entries, storage.RemoteObjectEntry{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	return
}

func (g *Gateway) DeleteObject(ctx context.Context, key string) (err error) {
	if _, err = g.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isAwsError[*types.NotFound](err) || isAwsError[*types.NoSuchKey](err) ||
			isAwsErrorCode(err, "NotFound") || isAwsErrorCode(err, "NoSuchKey") {
			err = fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
			return
		}
		err = fmt.Errorf("unable to head object: %w", err)
		return
	}

	if _, err = g.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err != nil {
		err = fmt.Errorf("unable to delete object: %w", err)
		return
	}
	g.logger.V(1).Info("deleted object", "key", key)
	return
}

func (g *Gateway) PresignDownloadURL(
	ctx context.Context,
	key string,
	expiry time.Duration,
) (url string, err error) {
	var req *v4.PresignedHTTPRequest
	if req, err = g.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expiry)); err != nil {
		err = fmt.Errorf("unable to presign object: %w", err)
		return
	}
	url = req.URL
	return
}

func isAwsError[T error](err error) bool {
	var awsErr T
	return errors.As(err, &awsErr)
}

func isAwsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
