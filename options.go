package upxfer

import (
	"net/http"
	"regexp"
	"time"

	"github.com/docker/go-units"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultChunkSize        = 5 * units.MiB
	defaultThreadsQuantity  = 5
	defaultMaxKeysPerList   = 99
	defaultMaxFileSize      = 5 << 40 // 5 TB
	defaultMinFileSize      = 0
	defaultShareExpiry      = 60 * time.Second
	defaultMaxRetryAttempts = 5
	defaultInitialDelay     = 1 * time.Second
	defaultMaxDelay         = 30 * time.Second
)

type EngineOption func(*Engine)

// WithChunkSize sets the size of every part but the last one.
// Default is 5 MiB. S3 rejects parts smaller than 5 MiB except the last one,
// smaller values are only useful against permissive backends.
func WithChunkSize(size int64) EngineOption {
	if size <= 0 {
		size = defaultChunkSize
	}
	return func(e *Engine) {
		e.chunkSize = size
	}
}

// WithThreadsQuantity sets the maximum number of concurrent part uploads.
// Default is 5.
func WithThreadsQuantity(threads int) EngineOption {
	if threads <= 0 {
		threads = defaultThreadsQuantity
	}
	return func(e *Engine) {
		e.threadsQuantity = threads
	}
}

// WithMaxKeysPerList sets the maximum number of keys returned by a listing.
// Default is 99.
func WithMaxKeysPerList(maxKeys int32) EngineOption {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeysPerList
	}
	return func(e *Engine) {
		e.maxKeysPerList = maxKeys
	}
}

// WithMaxFileSize sets the maximum file size allowed for upload.
// Default is 5 TB, the S3 object size limit. A file must also fit in 10000
// parts of the chunk size, about 48.8 GiB with the default chunk size.
func WithMaxFileSize(size int64) EngineOption {
	if size <= 0 {
		size = defaultMaxFileSize
	}
	return func(e *Engine) {
		e.fileRule.MaxFileSize = size
	}
}

// WithMinFileSize sets the minimum file size required for upload.
// Default is 0 (no limit).
func WithMinFileSize(size int64) EngineOption {
	if size <= 0 {
		size = defaultMinFileSize
	}
	return func(e *Engine) {
		e.fileRule.MinFileSize = size
	}
}

// WithExtensionWhitelist sets the list of allowed file extensions for upload.
// Default is empty (no restriction).
func WithExtensionWhitelist(extensions ...string) EngineOption {
	return func(e *Engine) {
		e.fileRule.ExtensionWhitelist = extensions
	}
}

// WithExtensionBlacklist sets the list of blocked file extensions for upload.
// Default is empty (no restriction).
func WithExtensionBlacklist(extensions ...string) EngineOption {
	return func(e *Engine) {
		e.fileRule.ExtensionBlacklist = extensions
	}
}

// WithModifiedAfter sets the minimum modified time required for upload.
// Default is zero (no restriction).
func WithModifiedAfter(modTime time.Time) EngineOption {
	return func(e *Engine) {
		e.fileRule.ModifiedAfter = modTime
	}
}

// WithModifiedBefore sets the maximum modified time required for upload.
// Default is zero (no restriction).
func WithModifiedBefore(modTime time.Time) EngineOption {
	return func(e *Engine) {
		e.fileRule.ModifiedBefore = modTime
	}
}

// WithFileNamePattern sets the regular expression pattern for file names.
// Default is nil (no restriction).
func WithFileNamePattern(pattern *regexp.Regexp) EngineOption {
	return func(e *Engine) {
		e.fileRule.FileNamePattern = pattern
	}
}

// WithProgressRefreshInterval limits the progress events produced by in-flight
// bytes to one per interval. Part commits always produce an event.
// Default is 0 (every change is reported).
func WithProgressRefreshInterval(interval time.Duration) EngineOption {
	if interval < 0 {
		interval = 0
	}
	return func(e *Engine) {
		e.refreshProgressInterval = interval
	}
}

// WithShareExpiry sets how long the URLs returned by Share stay valid.
// Default is 60 seconds.
func WithShareExpiry(expiry time.Duration) EngineOption {
	if expiry <= 0 {
		expiry = defaultShareExpiry
	}
	return func(e *Engine) {
		e.shareExpiry = expiry
	}
}

// WithHTTPClient sets the HTTP client used for part uploads and downloads.
// Default is a pooled client without timeout.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider of the engine
// metrics. Default is the global meter provider.
func WithMeterProvider(provider metric.MeterProvider) EngineOption {
	return func(e *Engine) {
		if provider != nil {
			e.meterProvider = provider
		}
	}
}

// WithDisabledRetry disables the retry mechanism for the engine.
// Default is false (enabled). If disabled, a part upload is attempted once
// and a failed part fails the upload, regardless of setting WithRetryConfig option.
func WithDisabledRetry() EngineOption {
	return func(e *Engine) {
		e.disabledRetry = true
	}
}

// RetryConfig defines the retry configuration for the engine.
type RetryConfig struct {
	// MaxRetryAttempts is the maximum number of attempts, default = 5.
	MaxRetryAttempts int
	// InitialDelay is the initial delay before the first retry, default = 1 second.
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries, default = 30 seconds.
	MaxDelay time.Duration
}

// WithRetryConfig sets the retry configuration for the engine. It applies to
// every part request and to the re-drive of parts that failed in a pool run.
// Support partial configuration, default values will be used if not set.
func WithRetryConfig(config RetryConfig) EngineOption {
	if config.MaxRetryAttempts <= 0 {
		config.MaxRetryAttempts = defaultMaxRetryAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaultInitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaultMaxDelay
	}
	return func(e *Engine) {
		e.retryConfig = config
	}
}
