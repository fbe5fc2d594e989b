package upxfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/derektruong/upxfer/internal/iometer"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

// partUploader sends part bodies to their presigned URLs.
type partUploader struct {
	client *retryablehttp.Client
	logger logr.Logger
}

func newPartUploader(
	logger logr.Logger,
	httpClient *http.Client,
	retryConfig RetryConfig,
	disabledRetry bool,
) (u *partUploader) {
	logger = logger.WithName("worker")
	client := retryablehttp.NewClient()
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	client.Logger = retryLogger{logger: logger}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if disabledRetry {
		client.RetryMax = 0
	} else {
		client.RetryMax = retryConfig.MaxRetryAttempts - 1
		client.RetryWaitMin = retryConfig.InitialDelay
		client.RetryWaitMax = retryConfig.MaxDelay
	}
	u = &partUploader{
		client: client,
		logger: logger,
	}
	return
}

// upload PUTs the byte range of p read from file and returns the ETag,
// quotes stripped. onRead receives the bytes sent by the current attempt.
func (u *partUploader) upload(
	ctx context.Context,
	p part,
	file io.ReaderAt,
	onRead func(sent int64),
) (etag string, err error) {
	var body any
	if p.Size > 0 {
		body = retryablehttp.ReaderFunc(func() (io.Reader, error) {
			return iometer.NewTransferReader(io.NewSectionReader(file, p.Offset, p.Size), onRead), nil
		})
	}

	var req *retryablehttp.Request
	if req, err = retryablehttp.NewRequestWithContext(ctx, http.MethodPut, p.URL, body); err != nil {
		err = fmt.Errorf("%w: part %d: %w", ErrPartTransfer, p.Number, err)
		return
	}
	req.ContentLength = p.Size

	var res *http.Response
	if res, err = u.client.Do(req); err != nil {
		err = fmt.Errorf("%w: part %d: %w", ErrPartTransfer, p.Number, err)
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		err = fmt.Errorf("%w: part %d: unexpected status %s", ErrPartTransfer, p.Number, res.Status)
		return
	}
	if etag = strings.ReplaceAll(res.Header.Get("ETag"), `"`, ""); etag == "" {
		err = fmt.Errorf("%w: part %d: missing ETag header", ErrPartTransfer, p.Number)
		return
	}
	u.logger.V(2).Info("uploaded part", "part", p.Number, "size", p.Size, "etag", etag)
	return
}

// standardClient returns a plain HTTP client sharing the retry policy.
func (u *partUploader) standardClient() *http.Client {
	return u.client.StandardClient()
}

// retryLogger routes the retryablehttp logs to logr.
type retryLogger struct {
	logger logr.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(nil, msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.logger.V(1).Info(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.V(2).Info(msg, keysAndValues...)
}
