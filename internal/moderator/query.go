package moderator

import (
	"sort"
	"time"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/model"
)

// GetTask returns the Task identified by id, the way engine.GetDownload
// looks a uuid.UUID up in its in-memory map, generalized to int64 ids and
// the tasksMu read lock shared with AddTask/CancelTask.
func (m *Moderator) GetTask(id int64) (*model.Task, bool) {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()

	task, ok := m.tasks[id]
	return task, ok
}

// ListTasks returns every known Task in the order it was added, the way
// engine.ListDownloads snapshots its map into a slice for callers.
func (m *Moderator) ListTasks() []*model.Task {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()

	out := make([]*model.Task, 0, len(m.taskOrder))
	for _, id := range m.taskOrder {
		if task, ok := m.tasks[id]; ok {
			out = append(out, task)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// ChunksOf returns the in-memory chunk snapshot for taskID, for status
// reporting; the live Chunk pointers are still mutated by workers, so
// callers must treat the returned values as a point-in-time read.
func (m *Moderator) ChunksOf(taskID int64) []*model.Chunk {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()

	return append([]*model.Chunk(nil), m.chunks[taskID]...)
}

// dispatchProgress posts one ChunkProgress event per WAITING task, run
// once a second off the speed ticker so listeners (the TUI, in
// particular) never have to poll the Moderator for live progress.
func (m *Moderator) dispatchProgress() {
	m.tasksMu.RLock()
	type snapshot struct {
		id         int64
		status     model.TaskStatus
		downloaded int64
		total      int64
		known      bool
	}
	var rows []snapshot
	for _, id := range m.taskOrder {
		task := m.tasks[id]
		if task == nil || task.Status() != model.StatusWaiting {
			continue
		}
		var downloaded int64
		for _, c := range m.chunks[id] {
			downloaded += c.Downloaded()
		}
		total, known := task.TotalLength()
		rows = append(rows, snapshot{id: id, status: task.Status(), downloaded: downloaded, total: total, known: known})
	}
	m.tasksMu.RUnlock()

	speed := m.GetSpeed()
	now := time.Now()

	for _, r := range rows {
		total := r.total
		if !r.known {
			total = -1
		}
		m.dispatcher.Dispatch(events.Event{
			Kind:      events.ChunkProgress,
			TaskID:    r.id,
			Status:    r.status,
			Progress:  r.downloaded,
			Total:     total,
			Speed:     speed,
			Timestamp: now,
		})
	}
}
