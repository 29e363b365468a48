package moderator

import (
	"fmt"
	"time"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/logger"
	"github.com/arjunv/modfetch/internal/model"
)

// The methods below implement chunkworker.ResultSink and
// mergeworker.ResultSink. Each forwards the terminal event as a job to
// the moderator thread, per "every terminal worker event is observed and
// acted upon by the Moderator exactly once."

func (m *Moderator) OnChunkFinished(chunkID int64) {
	m.enqueue(func() { m.handleChunkFinished(chunkID) })
}

func (m *Moderator) OnChunkError(chunkID int64, reason string, cause error) {
	m.enqueue(func() { m.handleChunkError(chunkID, reason, cause) })
}

func (m *Moderator) OnChunkInterrupted(chunkID int64) {
	m.enqueue(func() { m.handleChunkInterrupted(chunkID) })
}

func (m *Moderator) OnMergeFinished(taskID int64) {
	m.enqueue(func() { m.handleMergeFinished(taskID) })
}

func (m *Moderator) OnMergeError(taskID int64, reason string, cause error) {
	m.enqueue(func() { m.handleMergeError(taskID, reason, cause) })
}

func (m *Moderator) OnMergeInterrupted(taskID int64) {
	m.enqueue(func() { m.handleMergeInterrupted(taskID) })
}

func (m *Moderator) handleChunkFinished(chunkID int64) {
	taskID, ok := m.lookupChunkTask(chunkID)
	if !ok {
		return
	}

	delete(m.registry, chunkKey(chunkID))

	if c := m.findChunk(taskID, chunkID); c != nil {
		if err := m.store.UpdateChunk(c); err != nil {
			logger.Errorf("failed to persist finished chunk %d: %v", chunkID, err)
		}
	}

	if m.IsRunning() {
		m.spawnPass()
	}
}

func (m *Moderator) handleChunkError(chunkID int64, reason string, cause error) {
	taskID, ok := m.lookupChunkTask(chunkID)
	if !ok {
		return
	}

	m.tasksMu.RLock()
	task := m.tasks[taskID]
	m.tasksMu.RUnlock()
	if task == nil {
		return
	}

	m.failTask(task, fmt.Sprintf("%s: %v", reason, cause))
	m.cleanupTask(taskID)

	if m.IsRunning() {
		m.spawnPass()
	}
}

func (m *Moderator) handleChunkInterrupted(chunkID int64) {
	delete(m.registry, chunkKey(chunkID))
}

func (m *Moderator) handleMergeFinished(taskID int64) {
	delete(m.registry, mergeKey(taskID))

	m.tasksMu.RLock()
	task := m.tasks[taskID]
	chunks := append([]*model.Chunk(nil), m.chunks[taskID]...)
	m.tasksMu.RUnlock()
	if task == nil {
		return
	}

	for _, c := range chunks {
		if err := m.files.Delete(m.files.ChunkFilePath(taskID, c.ID)); err != nil {
			logger.Warnf("failed to delete spill file for chunk %d after merge: %v", c.ID, err)
		}
	}

	task.SetStatus(model.StatusFinished)
	if err := m.store.Update(task); err != nil {
		logger.Errorf("failed to persist finished task %d: %v", taskID, err)
	}

	m.dispatcher.Dispatch(events.Event{Kind: events.TaskFinished, TaskID: taskID, Status: task.Status(), Timestamp: time.Now()})

	if m.IsRunning() {
		m.spawnPass()
	}
}

func (m *Moderator) handleMergeError(taskID int64, reason string, cause error) {
	delete(m.registry, mergeKey(taskID))

	m.tasksMu.RLock()
	task := m.tasks[taskID]
	m.tasksMu.RUnlock()
	if task == nil {
		return
	}

	m.failTask(task, fmt.Sprintf("%s: %v", reason, cause))
	m.cleanupTask(taskID)

	if m.IsRunning() {
		m.spawnPass()
	}
}

func (m *Moderator) handleMergeInterrupted(taskID int64) {
	delete(m.registry, mergeKey(taskID))
}

func (m *Moderator) lookupChunkTask(chunkID int64) (int64, bool) {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()
	taskID, ok := m.chunkTask[chunkID]
	return taskID, ok
}

func (m *Moderator) findChunk(taskID, chunkID int64) *model.Chunk {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()

	for _, c := range m.chunks[taskID] {
		if c.ID == chunkID {
			return c
		}
	}
	return nil
}
