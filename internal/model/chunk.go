package model

import (
	"encoding/json"
	"sync/atomic"
)

// Chunk is a contiguous byte range of one task's file, downloaded
// independently into a spill file. Begin/End are inclusive; End == -1
// marks the "whole file" range of a non-resumable task. End is accessed
// atomically because split_chunk narrows it from the moderator thread
// while the owning chunk worker's download loop reads it concurrently.
type Chunk struct {
	ID     int64
	TaskID int64

	Begin int64
	end   int64

	downloaded int64 // accessed atomically; owned by the chunk worker
	finished   int32 // accessed atomically; 0/1
}

// NewChunk builds a pending chunk for the given inclusive range.
func NewChunk(id, taskID, begin, end int64) *Chunk {
	c := &Chunk{ID: id, TaskID: taskID, Begin: begin}
	c.end = end
	return c
}

func (c *Chunk) End() int64 {
	return atomic.LoadInt64(&c.end)
}

func (c *Chunk) SetEnd(end int64) {
	atomic.StoreInt64(&c.end, end)
}

// Size returns the range size in bytes, or -1 for the whole-file marker.
func (c *Chunk) Size() int64 {
	end := c.End()
	if end < 0 {
		return -1
	}
	return end - c.Begin + 1
}

func (c *Chunk) Downloaded() int64 {
	return atomic.LoadInt64(&c.downloaded)
}

func (c *Chunk) SetDownloaded(n int64) {
	atomic.StoreInt64(&c.downloaded, n)
}

func (c *Chunk) AddDownloaded(n int64) int64 {
	return atomic.AddInt64(&c.downloaded, n)
}

func (c *Chunk) Finished() bool {
	return atomic.LoadInt32(&c.finished) == 1
}

func (c *Chunk) SetFinished(finished bool) {
	v := int32(0)
	if finished {
		v = 1
	}
	atomic.StoreInt32(&c.finished, v)
}

// RemainingBytes returns how many bytes of the range are left to fetch,
// or -1 when the chunk has no known upper bound.
func (c *Chunk) RemainingBytes() int64 {
	size := c.Size()
	if size < 0 {
		return -1
	}
	return size - c.Downloaded()
}

type chunkSnapshot struct {
	ID         int64
	TaskID     int64
	Begin      int64
	End        int64
	Downloaded int64
	Finished   bool
}

func (c *Chunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(chunkSnapshot{
		ID:         c.ID,
		TaskID:     c.TaskID,
		Begin:      c.Begin,
		End:        c.End(),
		Downloaded: c.Downloaded(),
		Finished:   c.Finished(),
	})
}

func (c *Chunk) UnmarshalJSON(data []byte) error {
	var s chunkSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*c = Chunk{ID: s.ID, TaskID: s.TaskID, Begin: s.Begin, end: s.End, downloaded: s.Downloaded}
	c.SetFinished(s.Finished)

	return nil
}
