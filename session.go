package upxfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/upxfer/storage"
	"github.com/docker/go-units"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// remoteAbortTimeout bounds the cleanup of a failed multipart upload.
const remoteAbortTimeout = 30 * time.Second

// SessionState is the lifecycle state of one file upload.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionInitiating
	SessionAwaitingPartURLs
	SessionUploading
	SessionFinalizing
	SessionCompleted
	SessionFailed
	SessionAborted
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionInitiating:
		return "initiating"
	case SessionAwaitingPartURLs:
		return "awaiting_part_urls"
	case SessionUploading:
		return "uploading"
	case SessionFinalizing:
		return "finalizing"
	case SessionCompleted:
		return "completed"
	case SessionFailed:
		return "failed"
	case SessionAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session is over.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionAborted
}

// uploadSession drives the multipart upload of one file.
type uploadSession struct {
	engine *Engine
	logger logr.Logger

	id    string
	file  FileHandle
	key   string
	size  int64
	index int

	// uploadID and objectKey are set by the backend once initiated
	uploadID  string
	objectKey string

	parts    *partSet
	progress *progressAggregator

	mu      sync.Mutex
	state   SessionState
	aborted bool
	cancel  context.CancelFunc
}

func newUploadSession(e *Engine, file FileHandle, key string, index int) (s *uploadSession) {
	s = &uploadSession{
		engine: e,
		id:     uuid.NewString(),
		file:   file,
		key:    key,
		size:   file.Size(),
		index:  index,
		state:  SessionIdle,
	}
	s.logger = e.logger.WithName("session").WithValues("sessionID", s.id, "key", key)
	s.progress = newProgressAggregator(s.size, e.refreshProgressInterval, func(progress Progress) {
		progress.Index = s.index
		progress.Count = e.batchCount()
		e.notify(Event{Kind: EventProgress, Key: s.key, Progress: progress})
	})
	return
}

// run moves the session through its states until a terminal one.
// The returned error wraps ErrAborted when the session was aborted.
func (s *uploadSession) run(parent context.Context) (entry storage.RemoteObjectEntry, err error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	if s.aborted {
		cancel()
	}
	s.mu.Unlock()

	defer func() {
		s.terminate(parent, err)
		if err != nil && s.isAborted() {
			err = fmt.Errorf("%w: %s", ErrAborted, s.key)
		}
	}()

	s.logger.Info("starting upload", "size", units.HumanSize(float64(s.size)))
	s.engine.notify(Event{Kind: EventStart, Key: s.key})

	// Idle -> Initiating
	s.setState(SessionInitiating)
	if err = ctx.Err(); err != nil {
		return
	}
	if s.uploadID, s.objectKey, err = s.engine.gateway.CreateMultipartUpload(
		ctx, s.key, s.file.ContentType(),
	); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrInit, s.key, err)
		return
	}
	if s.objectKey == "" {
		s.objectKey = s.key
	}

	// Initiating -> AwaitingPartURLs
	s.setState(SessionAwaitingPartURLs)
	planned := planParts(s.size, s.engine.chunkSize)
	var urls []string
	if err = ctx.Err(); err != nil {
		return
	}
	if urls, err = s.engine.gateway.PresignPartURLs(ctx, s.uploadID, s.objectKey, len(planned)); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrPresign, s.key, err)
		return
	}
	if len(urls) != len(planned) {
		err = fmt.Errorf("%w: %s: %w (%d != %d)",
			ErrPresign, s.key, storage.ErrPartURLCountMismatch, len(urls), len(planned))
		return
	}
	for i := range planned {
		planned[i].URL = urls[i]
	}
	s.parts = newPartSet(planned)

	// AwaitingPartURLs -> Uploading
	s.setState(SessionUploading)
	if err = s.uploadParts(ctx); err != nil {
		return
	}

	// Uploading -> Finalizing
	s.setState(SessionFinalizing)
	if err = ctx.Err(); err != nil {
		return
	}
	if err = s.engine.gateway.CompleteMultipartUpload(
		ctx, s.uploadID, s.objectKey, s.parts.sortedCompleted(),
	); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrFinalize, s.key, err)
		return
	}
	s.progress.finish()

	entry = storage.RemoteObjectEntry{Key: s.objectKey, Size: s.size}
	return
}

// uploadParts runs the worker pool and, unless retry is disabled, runs it
// again over the parts a failed run gave back.
func (s *uploadSession) uploadParts(ctx context.Context) (err error) {
	if s.engine.disabledRetry {
		return s.driveParts(ctx)
	}

	cfg := s.engine.retryConfig
	return retry.Do(
		func() error {
			return s.driveParts(ctx)
		},
		retry.Context(ctx),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.Attempts(uint(cfg.MaxRetryAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrPartTransfer) && ctx.Err() == nil && !s.isAborted()
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("retrying pending parts",
				"pending", s.parts.pendingCount(),
				"errorMessage", err.Error(),
				"retryAttempts", n+1)
		}),
	)
}

// driveParts dispatches the queued parts to at most threadsQuantity workers.
// The first failure stops the dispatch, failed parts go back to the queue.
func (s *uploadSession) driveParts(ctx context.Context) (err error) {
	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.engine.threadsQuantity))

	for {
		if err = sem.Acquire(egCtx, 1); err != nil {
			break
		}
		// Acquire may succeed on a done context
		if err = egCtx.Err(); err != nil {
			sem.Release(1)
			break
		}
		p, ok := s.parts.pop()
		if !ok {
			sem.Release(1)
			break
		}
		// a failed part keeps its slot, nothing is dispatched after a failure
		eg.Go(func() (err error) {
			if err = s.sendPart(egCtx, p); err != nil {
				return
			}
			sem.Release(1)
			return
		})
	}

	if waitErr := eg.Wait(); waitErr != nil {
		err = waitErr
	}
	if err == nil && !s.parts.done() {
		err = fmt.Errorf("%w: %s: %d parts still pending", ErrPartTransfer, s.key, s.parts.pendingCount())
	}
	return
}

func (s *uploadSession) sendPart(ctx context.Context, p part) (err error) {
	var etag string
	if etag, err = s.engine.uploader.upload(ctx, p, s.file, func(sent int64) {
		s.progress.update(p.Number, sent)
	}); err != nil {
		s.parts.giveBack(p.Number)
		s.progress.reset(p.Number)
		if ctx.Err() == nil {
			s.logger.Error(err, "failed to upload part", "part", p.Number)
		}
		return
	}
	s.parts.commit(p.Number, etag)
	s.progress.commit(p.Number, p.Size)
	s.engine.metrics.recordPart(ctx, p.Size)
	return
}

// terminate records the final state. A failed upload is aborted on the
// backend so no orphan parts are kept.
func (s *uploadSession) terminate(parent context.Context, err error) {
	final := SessionCompleted
	switch {
	case err == nil:
	case s.isAborted():
		final = SessionAborted
	default:
		final = SessionFailed
	}
	s.setState(final)
	s.engine.metrics.recordSession(context.WithoutCancel(parent), final)

	if final != SessionFailed || s.uploadID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), remoteAbortTimeout)
	defer cancel()
	if abortErr := s.engine.gateway.AbortMultipartUpload(ctx, s.uploadID, s.objectKey); abortErr != nil {
		s.logger.Error(abortErr, "failed to abort multipart upload", "uploadID", s.uploadID)
	}
}

// abort cancels the in-flight requests and silences the progress.
// The backend upload is left untouched.
func (s *uploadSession) abort() {
	s.mu.Lock()
	s.aborted = true
	cancel := s.cancel
	s.mu.Unlock()

	s.progress.close()
	if cancel != nil {
		cancel()
	}
}

func (s *uploadSession) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *uploadSession) setState(state SessionState) {
	s.mu.Lock()
	from := s.state
	s.state = state
	s.mu.Unlock()
	s.logger.V(1).Info("session state changed", "from", from.String(), "to", state.String())
}

func (s *uploadSession) getState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
