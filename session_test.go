package upxfer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/derektruong/upxfer/storage"
	mock_storage "github.com/derektruong/upxfer/storage/mock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"go.uber.org/mock/gomock"
)

var _ = Describe("uploadSession", func() {
	var (
		mockCtrl *gomock.Controller
		gateway  *mock_storage.MockGateway
		server   *httptest.Server
		mu       sync.Mutex
		events   []Event
		e        *Engine
	)

	percentages := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return lo.FilterMap(events, func(event Event, _ int) (int, bool) {
			return event.Progress.Percentage, event.Kind == EventProgress
		})
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		gateway = mock_storage.NewMockGateway(mockCtrl)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("ETag", `"etag-1"`)
		}))
		DeferCleanup(server.Close)

		events = nil
		var err error
		e, err = NewEngine(GinkgoLogr, gateway, EventSinkFunc(func(event Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
		}), WithDisabledRetry())
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(e.cancel)
	})

	It("should complete and report 100 when aborted once finalized", func(ctx context.Context) {
		data := []byte("finalized")
		s := newUploadSession(e, NewFileHandle("done.txt", bytes.NewReader(data), int64(len(data))), "done.txt", 1)

		create := gateway.EXPECT().
			CreateMultipartUpload(gomock.Any(), "done.txt", gomock.Any()).
			Return("upload-1", "done.txt", nil)
		presign := gateway.EXPECT().
			PresignPartURLs(gomock.Any(), "upload-1", "done.txt", 1).
			Return([]string{server.URL + "/done.txt/1"}, nil).
			After(create)
		gateway.EXPECT().
			CompleteMultipartUpload(gomock.Any(), "upload-1", "done.txt",
				[]storage.CompletedPart{{PartNumber: 1, ETag: "etag-1"}}).
			DoAndReturn(func(context.Context, string, string, []storage.CompletedPart) error {
				s.abort()
				return nil
			}).
			After(presign)

		entry, err := s.run(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(entry).To(Equal(storage.RemoteObjectEntry{Key: "done.txt", Size: int64(len(data))}))
		Expect(s.getState()).To(Equal(SessionCompleted))

		got := percentages()
		Expect(got).ToNot(BeEmpty())
		Expect(got[len(got)-1]).To(Equal(100))
		Expect(lo.Count(got, 100)).To(Equal(1))
	}, NodeTimeout(10*time.Second))

	It("should end aborted without a remote abort when aborted while uploading", func(ctx context.Context) {
		data := []byte("aborted")
		s := newUploadSession(e, NewFileHandle("stop.txt", bytes.NewReader(data), int64(len(data))), "stop.txt", 1)

		create := gateway.EXPECT().
			CreateMultipartUpload(gomock.Any(), "stop.txt", gomock.Any()).
			Return("upload-2", "stop.txt", nil)
		gateway.EXPECT().
			PresignPartURLs(gomock.Any(), "upload-2", "stop.txt", 1).
			DoAndReturn(func(context.Context, string, string, int) ([]string, error) {
				s.abort()
				return []string{server.URL + "/stop.txt/1"}, nil
			}).
			After(create)

		_, err := s.run(ctx)
		Expect(err).To(MatchError(ErrAborted))
		Expect(s.getState()).To(Equal(SessionAborted))
		Expect(percentages()).To(BeEmpty())
	}, NodeTimeout(10*time.Second))
})
