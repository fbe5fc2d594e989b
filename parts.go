package upxfer

import (
	"sync"

	"github.com/derektruong/upxfer/storage"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// maxPartCount is the number of parts a multipart upload accepts.
const maxPartCount = 10000

// part is one byte range of a file and the presigned URL it is sent to.
type part struct {
	Number int32
	Offset int64
	Size   int64
	URL    string
}

// countParts returns the number of parts of a file. A zero-byte file still
// has one empty part, the backend refuses to complete an upload without parts.
func countParts(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// planParts splits a file into contiguous parts numbered from 1. Every part
// holds chunkSize bytes except the last one.
func planParts(size, chunkSize int64) (parts []part) {
	count := countParts(size, chunkSize)
	parts = make([]part, count)
	for i := range parts {
		offset := int64(i) * chunkSize
		parts[i] = part{
			Number: int32(i + 1),
			Offset: offset,
			Size:   min(chunkSize, max(size-offset, 0)),
		}
	}
	return
}

// partSet tracks the parts of a session. A part is pending while it waits
// for dispatch or is in flight, and completed once its ETag is known.
type partSet struct {
	mu        sync.Mutex
	total     int
	queue     []part
	inFlight  map[int32]part
	completed map[int32]storage.CompletedPart
}

func newPartSet(parts []part) *partSet {
	return &partSet{
		total:     len(parts),
		queue:     slices.Clone(parts),
		inFlight:  make(map[int32]part, len(parts)),
		completed: make(map[int32]storage.CompletedPart, len(parts)),
	}
}

// pop takes the last queued part and marks it in flight.
func (s *partSet) pop() (p part, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return
	}
	last := len(s.queue) - 1
	p, ok = s.queue[last], true
	s.queue = s.queue[:last]
	s.inFlight[p.Number] = p
	return
}

// commit records the ETag of an in-flight part.
func (s *partSet) commit(number int32, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[number]; !ok {
		return
	}
	delete(s.inFlight, number)
	s.completed[number] = storage.CompletedPart{PartNumber: number, ETag: etag}
}

// giveBack returns an in-flight part to the queue.
func (s *partSet) giveBack(number int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.inFlight[number]
	if !ok {
		return
	}
	delete(s.inFlight, number)
	s.queue = append(s.queue, p)
}

// pendingCount returns the number of parts not completed yet.
func (s *partSet) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) + len(s.inFlight)
}

func (s *partSet) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

func (s *partSet) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed) == s.total
}

// sortedCompleted returns the completed parts in ascending part number.
func (s *partSet) sortedCompleted() (parts []storage.CompletedPart) {
	s.mu.Lock()
	parts = lo.Values(s.completed)
	s.mu.Unlock()
	slices.SortFunc(parts, func(a, b storage.CompletedPart) int {
		return int(a.PartNumber - b.PartNumber)
	})
	return
}
