package upxfer_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/derektruong/upxfer"
	"github.com/derektruong/upxfer/storage"
	mock_storage "github.com/derektruong/upxfer/storage/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"go.uber.org/mock/gomock"
)

// partHook may delay or fail a part request once its body is read.
// A non-zero status is returned to the client instead of the ETag.
type partHook func(r *http.Request, key string, number int) (status int)

// partServer stands for the presigned URL target of the parts.
// A part of key is sent to /<key>/<number>.
type partServer struct {
	*httptest.Server

	mu          sync.Mutex
	hook        partHook
	bodies      map[string][]byte
	committed   []string
	attempts    map[string]int
	inFlight    map[string]int
	maxInFlight map[string]int
}

func newPartServer() *partServer {
	s := &partServer{
		bodies:      make(map[string][]byte),
		attempts:    make(map[string]int),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	DeferCleanup(s.Close)
	return s
}

func (s *partServer) setHook(hook partHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

func (s *partServer) serve(w http.ResponseWriter, r *http.Request) {
	key, number := s.parse(r.URL.Path)
	id := partPath(key, number)

	s.mu.Lock()
	s.attempts[id]++
	s.inFlight[key]++
	s.maxInFlight[key] = max(s.maxInFlight[key], s.inFlight[key])
	hook := s.hook
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight[key]--
		s.mu.Unlock()
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil || int64(len(body)) != r.ContentLength {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if hook != nil {
		if status := hook(r, key, number); status != 0 {
			w.WriteHeader(status)
			return
		}
	}

	s.mu.Lock()
	s.bodies[id] = body
	s.committed = append(s.committed, id)
	s.mu.Unlock()
	w.Header().Set("ETag", strconv.Quote(etagOf(key, number)))
}

func (s *partServer) parse(urlPath string) (key string, number int) {
	dir, file := path.Split(strings.TrimPrefix(urlPath, "/"))
	number, _ = strconv.Atoi(file)
	return strings.TrimSuffix(dir, "/"), number
}

// urls returns the presigned URLs of the parts of key.
func (s *partServer) urls(key string, count int) []string {
	return lo.Times(count, func(i int) string {
		return s.URL + "/" + partPath(key, i+1)
	})
}

func (s *partServer) body(key string, number int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[partPath(key, number)]
}

func (s *partServer) committedParts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.committed...)
}

func (s *partServer) attemptsOf(key string, number int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[partPath(key, number)]
}

func (s *partServer) maxInFlightOf(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight[key]
}

func partPath(key string, number int) string {
	return fmt.Sprintf("%s/%d", key, number)
}

func etagOf(key string, number int) string {
	return fmt.Sprintf("etag-%s-%d", strings.ReplaceAll(key, "/", "-"), number)
}

// expectUpload sets the gateway expectations of a successful upload of key
// and returns its create and complete calls.
func expectUpload(
	gateway *mock_storage.MockGateway,
	server *partServer,
	key string,
	partCount int,
) (create, complete *gomock.Call) {
	uploadID := "upload-" + key
	create = gateway.EXPECT().
		CreateMultipartUpload(gomock.Any(), key, gomock.Any()).
		Return(uploadID, key, nil)
	presign := gateway.EXPECT().
		PresignPartURLs(gomock.Any(), uploadID, key, partCount).
		Return(server.urls(key, partCount), nil).
		After(create)
	complete = gateway.EXPECT().
		CompleteMultipartUpload(gomock.Any(), uploadID, key, expectedParts(key, partCount)).
		Return(nil).
		After(presign)
	return
}

func expectedParts(key string, partCount int) []storage.CompletedPart {
	return lo.Times(partCount, func(i int) storage.CompletedPart {
		return storage.CompletedPart{PartNumber: int32(i + 1), ETag: etagOf(key, i+1)}
	})
}

// eventRecorder is an EventSink keeping every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []upxfer.Event
}

func (r *eventRecorder) Notify(event upxfer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []upxfer.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upxfer.Event(nil), r.events...)
}

func (r *eventRecorder) ofKind(kind upxfer.EventKind) []upxfer.Event {
	return lo.Filter(r.all(), func(event upxfer.Event, _ int) bool {
		return event.Kind == kind
	})
}

// kinds returns the kinds of the events of key, progress left out.
func (r *eventRecorder) kinds(key string) []upxfer.EventKind {
	return lo.FilterMap(r.all(), func(event upxfer.Event, _ int) (upxfer.EventKind, bool) {
		return event.Kind, event.Key == key && event.Kind != upxfer.EventProgress
	})
}

func (r *eventRecorder) percentages(key string) []int {
	return lo.FilterMap(r.all(), func(event upxfer.Event, _ int) (int, bool) {
		return event.Progress.Percentage, event.Key == key && event.Kind == upxfer.EventProgress
	})
}

// patternedData returns size bytes where no two nearby parts look the same.
func patternedData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func memoryFile(name string, data []byte) *upxfer.File {
	return upxfer.NewFileHandle(name, bytes.NewReader(data), int64(len(data)))
}

// waitIdle waits for the engine to drain its queue.
func waitIdle(ctx context.Context, engine *upxfer.Engine) {
	GinkgoHelper()
	Expect(engine.Wait(ctx)).To(Succeed())
	Expect(engine.InProgress()).To(BeFalse())
}
