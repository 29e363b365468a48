// Package mergeworker implements the Merge Worker: concatenates every
// finished chunk spill file of one task, in order, into the final
// destination. Grounded on tdm's internal/downloader's end-of-download
// file assembly and on filemanager.Manager.Concatenate's afero-backed
// buffered copy.
package mergeworker

import (
	"context"
	"sync/atomic"

	"github.com/arjunv/modfetch/internal/filemanager"
	"github.com/arjunv/modfetch/internal/logger"
)

// ResultSink receives the single terminal event of a Worker's lifetime.
// Implemented by the moderator.
type ResultSink interface {
	OnMergeFinished(taskID int64)
	OnMergeError(taskID int64, reason string, cause error)
	OnMergeInterrupted(taskID int64)
}

// Worker concatenates a task's chunk spill files into its destination.
// Invariant expected by the moderator: every chunk is finished and its
// spill file exists with the expected size before the Worker is spawned;
// the merge does not re-validate that.
type Worker struct {
	taskID      int64
	dest        string
	spillPaths  []string
	files       filemanager.Manager
	sink        ResultSink
	interrupted int32
}

func New(taskID int64, dest string, spillPaths []string, files filemanager.Manager, sink ResultSink) *Worker {
	return &Worker{taskID: taskID, dest: dest, spillPaths: spillPaths, files: files, sink: sink}
}

// Start runs the concatenation on the calling goroutine.
func (w *Worker) Start(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.finishInterrupted()
		return
	default:
	}

	if w.Interrupted() {
		w.finishInterrupted()
		return
	}

	if err := w.files.Concatenate(w.dest, w.spillPaths); err != nil {
		logger.Errorf("merge for task %d failed: %v", w.taskID, err)
		w.sink.OnMergeError(w.taskID, "failed to concatenate chunk files", err)
		return
	}

	logger.Debugf("merge for task %d finished", w.taskID)
	w.sink.OnMergeFinished(w.taskID)
}

func (w *Worker) Interrupted() bool {
	return atomic.LoadInt32(&w.interrupted) == 1
}

func (w *Worker) Interrupt() {
	atomic.StoreInt32(&w.interrupted, 1)
}

func (w *Worker) finishInterrupted() {
	logger.Debugf("merge for task %d interrupted", w.taskID)
	w.sink.OnMergeInterrupted(w.taskID)
}
