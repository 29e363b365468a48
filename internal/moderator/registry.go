package moderator

import (
	"fmt"

	"github.com/arjunv/modfetch/internal/chunkworker"
	"github.com/arjunv/modfetch/internal/mergeworker"
)

type workerKind int

const (
	kindChunk workerKind = iota
	kindMerge
)

// workerEntry is one live row of the Worker Registry, keyed by
// "chunk:<id>" or "merge:<task-id>" and mutated only on the moderator
// thread, per the single-writer scheduling model.
type workerEntry struct {
	kind   workerKind
	taskID int64

	chunkWorker *chunkworker.Worker
	mergeWorker *mergeworker.Worker

	done chan struct{}
}

func chunkKey(chunkID int64) string {
	return fmt.Sprintf("chunk:%d", chunkID)
}

func mergeKey(taskID int64) string {
	return fmt.Sprintf("merge:%d", taskID)
}

// workerCount returns the total number of live workers, the value
// compared against max-workers in the spawn-pass.
func (m *Moderator) workerCount() int {
	return len(m.registry)
}

// taskWorkerCount returns the number of live chunk workers belonging to
// taskID, compared against a task's max-parallel-connections.
func (m *Moderator) taskWorkerCount(taskID int64) int {
	n := 0
	for _, e := range m.registry {
		if e.kind == kindChunk && e.taskID == taskID {
			n++
		}
	}
	return n
}
