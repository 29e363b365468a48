package model

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// UnsetLength marks a Task whose total size has not been learned yet.
const UnsetLength int64 = -1

// TaskOptions carries the caller-supplied knobs for a new Task.
type TaskOptions struct {
	MaxChunks        int
	MaxParallelConns int
	Headers          map[string]string
}

// Task is a requested download, owned exclusively by the moderator loop
// once inserted; callers only ever see copies returned from the public API.
type Task struct {
	ID          int64
	URL         string
	Destination string

	MaxChunks        int
	MaxParallelConns int
	Headers          map[string]string

	totalLength int64 // UnsetLength until learned; accessed atomically
	resumable   int32 // 0/1, accessed atomically

	status  int32 // TaskStatus, accessed atomically
	message atomic.Value // string

	CreatedAt time.Time
}

// NewTask builds a Task in the IDLE state.
func NewTask(id int64, url, destination string, opts TaskOptions) *Task {
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 1
	}
	if opts.MaxParallelConns <= 0 {
		opts.MaxParallelConns = 1
	}

	t := &Task{
		ID:               id,
		URL:              url,
		Destination:      destination,
		MaxChunks:        opts.MaxChunks,
		MaxParallelConns: opts.MaxParallelConns,
		Headers:          opts.Headers,
		totalLength:      UnsetLength,
		status:           int32(StatusIdle),
		CreatedAt:        time.Now(),
	}
	t.message.Store("")

	return t
}

func (t *Task) Status() TaskStatus {
	return TaskStatus(atomic.LoadInt32(&t.status))
}

func (t *Task) SetStatus(s TaskStatus) {
	atomic.StoreInt32(&t.status, int32(s))
}

func (t *Task) Message() string {
	v, _ := t.message.Load().(string)
	return v
}

func (t *Task) SetMessage(msg string) {
	t.message.Store(msg)
}

// Fail transitions the task to FAILED with the given message. Absorbing.
func (t *Task) Fail(message string) {
	t.SetMessage(message)
	t.SetStatus(StatusFailed)
}

func (t *Task) TotalLength() (length int64, known bool) {
	v := atomic.LoadInt64(&t.totalLength)
	return v, v != UnsetLength
}

func (t *Task) SetTotalLength(length int64) {
	atomic.StoreInt64(&t.totalLength, length)
}

func (t *Task) Resumable() bool {
	return atomic.LoadInt32(&t.resumable) == 1
}

func (t *Task) SetResumable(resumable bool) {
	v := int32(0)
	if resumable {
		v = 1
	}
	atomic.StoreInt32(&t.resumable, v)
}

// taskSnapshot is the wire shape persisted by the task store; Task's
// atomically-accessed fields are unexported so the regular struct tags
// can't see them.
type taskSnapshot struct {
	ID          int64
	URL         string
	Destination string

	MaxChunks        int
	MaxParallelConns int
	Headers          map[string]string

	TotalLength int64
	Resumable   bool
	Status      TaskStatus
	Message     string

	CreatedAt time.Time
}

func (t *Task) MarshalJSON() ([]byte, error) {
	length, _ := t.TotalLength()

	return json.Marshal(taskSnapshot{
		ID:               t.ID,
		URL:              t.URL,
		Destination:      t.Destination,
		MaxChunks:        t.MaxChunks,
		MaxParallelConns: t.MaxParallelConns,
		Headers:          t.Headers,
		TotalLength:      length,
		Resumable:        t.Resumable(),
		Status:           t.Status(),
		Message:          t.Message(),
		CreatedAt:        t.CreatedAt,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var s taskSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*t = Task{
		ID:               s.ID,
		URL:              s.URL,
		Destination:      s.Destination,
		MaxChunks:        s.MaxChunks,
		MaxParallelConns: s.MaxParallelConns,
		Headers:          s.Headers,
		totalLength:      s.TotalLength,
		status:           int32(s.Status),
		CreatedAt:        s.CreatedAt,
	}
	t.SetResumable(s.Resumable)
	t.message.Store(s.Message)

	return nil
}
