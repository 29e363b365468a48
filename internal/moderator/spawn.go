package moderator

import (
	"fmt"
	"sort"
	"time"

	"github.com/arjunv/modfetch/internal/chunkworker"
	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/logger"
	"github.com/arjunv/modfetch/internal/mergeworker"
	"github.com/arjunv/modfetch/internal/model"
)

// spawnPass is the heart of the Moderator: it walks the undone tasks in
// Task Store order, initializes idle ones, and spawns workers up to the
// global and per-task budgets. It must no-op if not running, and is
// idempotent — the Worker Registry's uniqueness keyed by chunk/merge id
// guarantees no duplicate workers on re-entry. Runs on the moderator
// thread only.
func (m *Moderator) spawnPass() {
	if !m.IsRunning() {
		return
	}

	m.tasksMu.RLock()
	order := append([]int64(nil), m.taskOrder...)
	m.tasksMu.RUnlock()

	for _, id := range order {
		if !m.IsRunning() {
			return
		}

		m.tasksMu.RLock()
		task := m.tasks[id]
		m.tasksMu.RUnlock()

		if task == nil || task.Status().Done() {
			continue
		}

		if task.Status() == model.StatusIdle {
			if err := m.initTask(task); err != nil {
				m.failTask(task, err.Error())
				continue
			}
		}

		if m.workerCount() >= m.maxWorkersSnapshot() {
			continue
		}

		chunks := m.chunksOf(id)

		if allChunksFinished(chunks) {
			m.spawnMergeIfNeeded(task, chunks)
			continue
		}

		m.spawnMissingChunkWorkers(task, chunks)
		m.splitLargeChunk(task)
	}
}

func (m *Moderator) maxWorkersSnapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxWorkers
}

func (m *Moderator) chunksOf(taskID int64) []*model.Chunk {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()
	return append([]*model.Chunk(nil), m.chunks[taskID]...)
}

func allChunksFinished(chunks []*model.Chunk) bool {
	if len(chunks) == 0 {
		return false
	}
	for _, c := range chunks {
		if !c.Finished() {
			return false
		}
	}
	return true
}

// initTask probes content-length (when unknown), partitions the byte
// range into chunks, and transitions IDLE -> WAITING. Precondition: task
// is IDLE.
func (m *Moderator) initTask(task *model.Task) error {
	if err := m.store.RemoveChunksOf(task.ID); err != nil {
		return fmt.Errorf("failed to clear stale chunks: %w", err)
	}
	m.tasksMu.Lock()
	m.chunks[task.ID] = nil
	m.tasksMu.Unlock()

	length, known := task.TotalLength()
	if !known {
		probed, resumable, err := m.http.FetchContentLength(m.ctx, task.URL, task.Headers)
		if err != nil {
			return fmt.Errorf("content-length probe failed: %w", err)
		}

		task.SetTotalLength(probed)
		task.SetResumable(resumable && probed >= 0)
		length, _ = task.TotalLength()
	}

	var chunks []*model.Chunk
	if length < 0 || !task.Resumable() {
		chunks = []*model.Chunk{m.newChunk(task.ID, 0, -1)}
	} else {
		chunks = partitionChunks(task.ID, length, task.MaxChunks, m.minChunkLength, m.newChunk)
	}

	for _, c := range chunks {
		if err := m.store.InsertChunk(c); err != nil {
			return fmt.Errorf("failed to persist chunk %d: %w", c.ID, err)
		}
	}

	m.tasksMu.Lock()
	m.chunks[task.ID] = chunks
	for _, c := range chunks {
		m.chunkTask[c.ID] = task.ID
	}
	m.tasksMu.Unlock()

	task.SetStatus(model.StatusWaiting)
	if err := m.store.Update(task); err != nil {
		return fmt.Errorf("failed to persist task after init: %w", err)
	}

	m.dispatcher.Dispatch(events.Event{Kind: events.TaskStateChanged, TaskID: task.ID, Status: task.Status(), Timestamp: time.Now()})
	logger.Debugf("task %d initialized with %d chunk(s), length=%d, resumable=%v", task.ID, len(chunks), length, task.Resumable())

	return nil
}

func (m *Moderator) newChunk(taskID, begin, end int64) *model.Chunk {
	id := nextID(&m.nextChunkID)
	return model.NewChunk(id, taskID, begin, end)
}

// partitionChunks chooses the largest k in [1, maxChunks] with
// length/(k+1) > minChunkLength, then splits [0, length-1] into k
// contiguous ranges, the last absorbing the remainder.
func partitionChunks(taskID, length int64, maxChunks int, minChunkLength int64, newChunk func(taskID, begin, end int64) *model.Chunk) []*model.Chunk {
	k := 1
	for candidate := maxChunks; candidate >= 1; candidate-- {
		if length/(int64(candidate)+1) > minChunkLength {
			k = candidate
			break
		}
	}

	base := length / int64(k)
	chunks := make([]*model.Chunk, 0, k)

	var begin int64
	for i := 0; i < k; i++ {
		end := begin + base - 1
		if i == k-1 {
			end = length - 1
		}
		chunks = append(chunks, newChunk(taskID, begin, end))
		begin = end + 1
	}

	return chunks
}

func (m *Moderator) spawnMergeIfNeeded(task *model.Task, chunks []*model.Chunk) {
	if task.Status() != model.StatusMerging {
		task.SetStatus(model.StatusMerging)
		if err := m.store.Update(task); err != nil {
			logger.Errorf("failed to persist task %d transition to merging: %v", task.ID, err)
		}
		m.dispatcher.Dispatch(events.Event{Kind: events.TaskStateChanged, TaskID: task.ID, Status: task.Status(), Timestamp: time.Now()})
	}

	if _, exists := m.registry[mergeKey(task.ID)]; exists {
		return
	}

	sorted := append([]*model.Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })

	paths := make([]string, 0, len(sorted))
	for _, c := range sorted {
		paths = append(paths, m.files.ChunkFilePath(task.ID, c.ID))
	}

	worker := mergeworker.New(task.ID, task.Destination, paths, m.files, m)
	entry := &workerEntry{kind: kindMerge, taskID: task.ID, mergeWorker: worker, done: make(chan struct{})}
	m.registry[mergeKey(task.ID)] = entry

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(entry.done)
		worker.Start(m.ctx)
	}()

	logger.Infof("spawned merge worker for task %d (%d chunks)", task.ID, len(sorted))
}

func (m *Moderator) spawnMissingChunkWorkers(task *model.Task, chunks []*model.Chunk) {
	budget := m.maxWorkersSnapshot() - m.workerCount()
	perTaskBudget := task.MaxParallelConns - m.taskWorkerCount(task.ID)

	for _, c := range chunks {
		if budget <= 0 || perTaskBudget <= 0 {
			return
		}
		if c.Finished() {
			continue
		}
		if _, exists := m.registry[chunkKey(c.ID)]; exists {
			continue
		}

		m.spawnChunkWorker(task, c)
		budget--
		perTaskBudget--
	}
}

func (m *Moderator) spawnChunkWorker(task *model.Task, c *model.Chunk) {
	spillPath := m.files.ChunkFilePath(task.ID, c.ID)
	worker := chunkworker.New(c, spillPath, task.URL, task.Headers, task.Resumable(), m.http, m.files, m.speed, m)

	entry := &workerEntry{kind: kindChunk, taskID: task.ID, chunkWorker: worker, done: make(chan struct{})}
	m.registry[chunkKey(c.ID)] = entry

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(entry.done)
		worker.Start(m.ctx)
	}()

	logger.Debugf("spawned chunk worker %d for task %d [%d-%d]", c.ID, task.ID, c.Begin, c.End())
}

// splitLargeChunk rebalances live connections by narrowing the largest
// remaining live chunk and spawning a worker for the freed tail, up to
// the remaining global/per-task budget. It snapshots the live worker set
// before iterating so that workers spawned mid-pass are not themselves
// candidates for splitting in the same pass.
func (m *Moderator) splitLargeChunk(task *model.Task) {
	if !task.Resumable() {
		return
	}

	type candidate struct {
		worker *chunkworker.Worker
	}

	var live []candidate
	for _, e := range m.registry {
		if e.kind == kindChunk && e.taskID == task.ID {
			live = append(live, candidate{worker: e.chunkWorker})
		}
	}

	budget := m.maxWorkersSnapshot() - m.workerCount()
	if perTask := task.MaxParallelConns - len(live); perTask < budget {
		budget = perTask
	}
	if budget <= 0 {
		return
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].worker.RemainingBytes() > live[j].worker.RemainingBytes()
	})

	for _, cand := range live {
		if budget <= 0 {
			return
		}

		newID := nextID(&m.nextChunkID)
		newChunk := cand.worker.SplitChunk(newID, m.minChunkLength)
		if newChunk == nil {
			return
		}

		if err := m.store.InsertChunk(newChunk); err != nil {
			logger.Errorf("failed to persist split chunk %d: %v", newChunk.ID, err)
			return
		}

		m.tasksMu.Lock()
		m.chunks[task.ID] = append(m.chunks[task.ID], newChunk)
		m.chunkTask[newChunk.ID] = task.ID
		m.tasksMu.Unlock()

		m.spawnChunkWorker(task, newChunk)
		budget--
	}
}

func nextID(counter *int64) int64 {
	*counter++
	return *counter
}
