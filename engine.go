package upxfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/derektruong/upxfer/internal/fileutils"
	s3protoc "github.com/derektruong/upxfer/protoc/s3"
	"github.com/derektruong/upxfer/storage"
	s3storage "github.com/derektruong/upxfer/storage/s3"
	"github.com/docker/go-units"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// queuedFile is a file waiting for its upload, with its destination key.
type queuedFile struct {
	file FileHandle
	key  string
}

// Engine uploads files to object storage one at a time, in the order they
// were enqueued, each file split into parts sent concurrently.
type Engine struct {
	logger   logr.Logger
	gateway  storage.Gateway
	sink     EventSink
	uploader *partUploader
	metrics  *engineMetrics

	// options
	chunkSize               int64
	threadsQuantity         int
	maxKeysPerList          int32
	fileRule                *fileRule
	refreshProgressInterval time.Duration
	shareExpiry             time.Duration
	disabledRetry           bool
	retryConfig             RetryConfig
	httpClient              *http.Client
	meterProvider           metric.MeterProvider

	// ctx is canceled by Close
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the queue state below
	mu      sync.Mutex
	queue   []queuedFile
	index   int
	active  *uploadSession
	running bool
	closed  bool
	idle    chan struct{}

	// count is the number of files enqueued since the engine was last idle
	count atomic.Int64

	// entriesMu guards the cache of known objects
	entriesMu sync.RWMutex
	entries   []storage.RemoteObjectEntry
}

// NewEngine creates an engine over the gateway with the optional EngineOption(s).
// A nil sink discards the events.
func NewEngine(
	logger logr.Logger,
	gateway storage.Gateway,
	sink EventSink,
	options ...EngineOption,
) (e *Engine, err error) {
	if sink == nil {
		sink = discardSink
	}
	e = &Engine{
		logger:          logger.WithName("engine"),
		gateway:         gateway,
		sink:            sink,
		chunkSize:       defaultChunkSize,
		threadsQuantity: defaultThreadsQuantity,
		maxKeysPerList:  defaultMaxKeysPerList,
		fileRule: &fileRule{
			MaxFileSize: defaultMaxFileSize,
			MinFileSize: defaultMinFileSize,
		},
		shareExpiry:   defaultShareExpiry,
		httpClient:    cleanhttp.DefaultPooledClient(),
		meterProvider: otel.GetMeterProvider(),
		retryConfig: RetryConfig{
			MaxRetryAttempts: defaultMaxRetryAttempts,
			InitialDelay:     defaultInitialDelay,
			MaxDelay:         defaultMaxDelay,
		},
		index: -1,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.metrics, err = newEngineMetrics(e.meterProvider); err != nil {
		e = nil
		return
	}
	e.uploader = newPartUploader(e.logger, e.httpClient, e.retryConfig, e.disabledRetry)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return
}

// NewS3Engine creates an engine for the bucket described by cfg. The tuning
// fields of cfg are applied before the options.
func NewS3Engine(
	ctx context.Context,
	logger logr.Logger,
	cfg Config,
	sink EventSink,
	options ...EngineOption,
) (e *Engine, err error) {
	if err = cfg.Validate(ctx); err != nil {
		return
	}

	client := s3protoc.NewClient(cfg.Endpoint, cfg.BucketName, cfg.Region, cfg.AccessKey, cfg.SecretKey)
	var gateway *s3storage.Gateway
	if gateway, err = s3storage.NewGateway(logger, client); err != nil {
		return
	}

	logger.V(1).Info("creating s3 engine", "config", cfg.String())
	return NewEngine(logger, gateway, sink, append(cfg.options(), options...)...)
}

// Enqueue appends files to the upload queue. Each file is stored under
// prefix + "/" + file.Name(), the prefix is omitted when empty. The queue
// starts draining in the background if it is idle.
//
// When a file fails the file rules, or would need more than 10000 parts of
// the chunk size, nothing is enqueued.
func (e *Engine) Enqueue(prefix string, files ...FileHandle) (err error) {
	if len(files) == 0 {
		return
	}

	items := make([]queuedFile, 0, len(files))
	var totalSize int64
	for _, file := range files {
		if ruleErr := e.fileRule.Check(fileInfoOf(file)); ruleErr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrFileRejected, file.Name(), ruleErr)
			return
		}
		if parts := countParts(file.Size(), e.chunkSize); parts > maxPartCount {
			err = fmt.Errorf("%w: %s: %w: %d parts of %s > %d",
				ErrFileRejected, file.Name(), ErrFileTooLarge,
				parts, units.BytesSize(float64(e.chunkSize)), maxPartCount)
			return
		}
		items = append(items, queuedFile{
			file: file,
			key:  fileutils.BuildObjectKey(prefix, file.Name()),
		})
		totalSize += file.Size()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		err = ErrEngineClosed
		return
	}

	e.queue = append(e.queue, items...)
	e.count.Add(int64(len(items)))
	e.logger.Info("enqueued files",
		"prefix", prefix, "files", len(items), "totalSize", units.HumanSize(float64(totalSize)))

	if !e.running {
		e.running = true
		e.idle = make(chan struct{})
		go e.drain()
	}
	return
}

// drain uploads the queued files one after another until the queue is empty.
func (e *Engine) drain() {
	for {
		e.mu.Lock()
		next := e.index + 1
		if next >= len(e.queue) {
			e.mu.Unlock()
			e.notify(Event{Kind: EventCompleted, Entries: e.Entries()})
			e.notify(Event{Kind: EventEnd})

			// files enqueued while the events were delivered keep the drain going
			e.mu.Lock()
			if e.index+1 < len(e.queue) {
				e.mu.Unlock()
				continue
			}
			e.finishLocked()
			e.mu.Unlock()
			return
		}
		item := e.queue[next]
		e.index = next
		session := newUploadSession(e, item.file, item.key, next+1)
		e.active = session
		e.mu.Unlock()

		entry, err := session.run(e.ctx)

		e.mu.Lock()
		e.active = nil
		e.mu.Unlock()

		if closeErr := closeHandle(item.file); closeErr != nil {
			e.logger.Error(closeErr, "failed to close file", "key", item.key)
		}

		if err != nil {
			if errors.Is(err, ErrAborted) {
				e.logger.Info("upload aborted", "key", item.key)
			} else {
				e.logger.Error(err, "upload failed", "key", item.key)
			}
			e.notify(Event{Kind: EventFailed, Key: item.key, Err: err})
			continue
		}

		entries := e.upsertEntry(entry)
		e.logger.Info("upload finished", "key", entry.Key, "size", units.HumanSize(float64(entry.Size)))
		e.notify(Event{Kind: EventUploaded, Key: entry.Key, Entry: entry, Entries: entries})
	}
}

// finishLocked resets the queue once drained and signals the waiters.
func (e *Engine) finishLocked() {
	e.logger.Info("upload queue drained", "files", len(e.queue))
	e.queue = nil
	e.index = -1
	e.count.Store(0)
	e.running = false
	close(e.idle)
}

// Wait blocks until the queue is drained or ctx is done.
func (e *Engine) Wait(ctx context.Context) (err error) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// InProgress reports whether the queue is draining.
func (e *Engine) InProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ActiveSession returns the key and state of the upload in progress.
func (e *Engine) ActiveSession() (key string, state SessionState, ok bool) {
	e.mu.Lock()
	session := e.active
	e.mu.Unlock()
	if session == nil {
		return
	}
	return session.key, session.getState(), true
}

// Abort stops the upload in progress, the queue then moves to the next file.
// It reports whether an upload was aborted.
//
// Abort may be called from EventSink.Notify. A progress event already being
// delivered on another goroutine may still reach the sink after Abort returns.
func (e *Engine) Abort() bool {
	e.mu.Lock()
	session := e.active
	e.mu.Unlock()
	if session == nil {
		return false
	}
	e.logger.Info("aborting upload", "key", session.key)
	session.abort()
	return true
}

// Close aborts the upload in progress, drops the queued files, waits for the
// engine to be idle and releases the gateway. Close and Wait block on the
// engine goroutines and must not be called from EventSink.Notify.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	var dropped []FileHandle
	if next := e.index + 1; next < len(e.queue) {
		for _, item := range e.queue[next:] {
			dropped = append(dropped, item.file)
		}
		e.queue = e.queue[:next]
	}
	session := e.active
	running := e.running
	idle := e.idle
	e.mu.Unlock()

	if session != nil {
		session.abort()
	}
	e.cancel()
	if running {
		<-idle
	}
	if err := closeHandles(dropped); err != nil {
		e.logger.Error(err, "failed to close dropped files")
	}
	e.gateway.Close()
	e.logger.Info("closed engine", "droppedFiles", len(dropped))
}

// batchCount returns the number of files of the current queue.
func (e *Engine) batchCount() int {
	return int(e.count.Load())
}

func (e *Engine) notify(event Event) {
	e.sink.Notify(event)
}
