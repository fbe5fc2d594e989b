package upxfer

import (
	"time"

	"github.com/derektruong/upxfer/storage"
)

// EventKind identifies a lifecycle notification of the engine.
type EventKind int

const (
	// EventStart is emitted when a file upload begins.
	EventStart EventKind = iota
	// EventProgress is emitted when the percentage of the active file changes.
	EventProgress
	// EventUploaded is emitted when a file is stored in the bucket.
	EventUploaded
	// EventCompleted is emitted once the queue is drained.
	EventCompleted
	// EventDeleted is emitted after an object is removed.
	EventDeleted
	// EventListed is emitted after a listing refreshed the entries.
	EventListed
	// EventEnd is emitted after EventCompleted, the engine is idle again.
	EventEnd
	// EventFailed carries the error that terminated an upload.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventProgress:
		return "progress"
	case EventUploaded:
		return "uploaded"
	case EventCompleted:
		return "completed"
	case EventDeleted:
		return "deleted"
	case EventListed:
		return "listed"
	case EventEnd:
		return "end"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress describes the upload progress of the active file.
type Progress struct {
	// Percentage is the completed share of the file, from 0 to 100
	Percentage int

	// Index is the 1-based position of the file in the current queue
	Index int

	// Count is the number of files enqueued since the engine was last idle
	Count int

	// TransferredSize is the number of bytes sent, committed parts and
	// in-flight bytes included
	TransferredSize int64

	// TotalSize is the size of the file in bytes
	TotalSize int64

	// Speed is the speed of the transfer in bytes per second
	Speed int64

	// Duration is the time elapsed since the upload started
	Duration time.Duration
}

// Event is a notification sent to the EventSink. Only the fields relevant to
// the Kind are set.
type Event struct {
	Kind EventKind

	// Key is the object key the event refers to
	Key string

	// Progress is set for EventProgress
	Progress Progress

	// Entry is set for EventUploaded
	Entry storage.RemoteObjectEntry

	// Entries is the snapshot of the known objects after the event
	Entries []storage.RemoteObjectEntry

	// Err is set for EventFailed
	Err error
}

// EventSink receives the notifications of the engine.
//
// Notify is called synchronously from the engine goroutines and no engine
// lock is held meanwhile. It must return quickly and must not call
// Engine.Close or Engine.Wait, which wait for those goroutines.
type EventSink interface {
	Notify(event Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event Event)

func (f EventSinkFunc) Notify(event Event) {
	f(event)
}

var discardSink = EventSinkFunc(func(Event) {})
