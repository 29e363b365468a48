// Package chunkworker implements the Chunk Worker: downloads exactly one
// chunk's byte range into a dedicated spill file, reporting progress to
// the Speed Meter and exactly one terminal event to its ResultSink. It is
// grounded on tdm's internal/chunk.Chunk.Download/downloadLoop (the
// append-in-place file handling and the cooperative-cancellation select
// loop) and internal/downloader/download.go's atomic progress counters,
// adapted from a chunk-owned state machine to the narrower moderator/
// worker split this design uses.
package chunkworker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/arjunv/modfetch/internal/filemanager"
	"github.com/arjunv/modfetch/internal/httpclient"
	"github.com/arjunv/modfetch/internal/logger"
	"github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/speedmeter"
)

const readBufferSize = 32 * 1024

// ResultSink receives the single terminal event of a Worker's lifetime.
// Implemented by the moderator; chunk workers never import it, so there
// is no import cycle between the two packages.
type ResultSink interface {
	OnChunkFinished(chunkID int64)
	OnChunkError(chunkID int64, reason string, cause error)
	OnChunkInterrupted(chunkID int64)
}

// Worker downloads one Chunk. States: RUNNING -> {FINISHED, ERROR,
// INTERRUPTED}; it is never restarted, the moderator builds a fresh
// Worker for resumed downloads.
type Worker struct {
	chunk       *model.Chunk
	spillPath   string
	url         string
	headers     map[string]string
	resumable   bool
	http        httpclient.Client
	files       filemanager.Manager
	speed       *speedmeter.Meter
	sink        ResultSink
	interrupted int32

	splitMu sync.Mutex
}

func New(chunk *model.Chunk, spillPath, url string, headers map[string]string, resumable bool, http httpclient.Client, files filemanager.Manager, speed *speedmeter.Meter, sink ResultSink) *Worker {
	return &Worker{
		chunk:     chunk,
		spillPath: spillPath,
		url:       url,
		headers:   headers,
		resumable: resumable,
		http:      http,
		files:     files,
		speed:     speed,
		sink:      sink,
	}
}

// Start runs the download to completion (or interruption/error) on the
// calling goroutine. The moderator launches it with `go worker.Start(ctx)`.
func (w *Worker) Start(ctx context.Context) {
	begin := w.chunk.Begin + w.chunk.Downloaded()
	end := w.chunk.End()

	if !w.resumable {
		begin, end = -1, -1
	}

	body, err := w.http.Open(ctx, w.url, begin, end, w.headers)
	if err != nil {
		w.finishError("failed to open range request", err)
		return
	}
	defer body.Close()

	file, err := w.files.OpenAppend(w.spillPath)
	if err != nil {
		w.finishError("failed to open spill file", err)
		return
	}
	defer file.Close()

	w.copyInto(ctx, body, file)
}

func (w *Worker) copyInto(ctx context.Context, body io.ReadCloser, file io.Writer) {
	buf := make([]byte, readBufferSize)

	for {
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

		n, readErr := body.Read(buf)

		// A concurrent SplitChunk may have narrowed End; never write past
		// it, and finish once the narrowed range is complete.
		if end := w.chunk.End(); end >= 0 {
			if left := end - w.chunk.Begin + 1 - w.chunk.Downloaded(); int64(n) >= left {
				n = int(max(left, 0))
				readErr = io.EOF
			}
		}

		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				w.finishError("failed to write spill file", werr)
				return
			}

			w.chunk.AddDownloaded(int64(n))
			w.speed.Add(int64(n))
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				w.finish()
				return
			}
			w.finishError("transport read failed", readErr)
			return
		}
	}
}

// Interrupted reports whether a cooperative cancellation was requested.
func (w *Worker) Interrupted() bool {
	return atomic.LoadInt32(&w.interrupted) == 1
}

// Interrupt requests cooperative cancellation; observed at the next read.
func (w *Worker) Interrupt() {
	atomic.StoreInt32(&w.interrupted, 1)
}

func (w *Worker) finish() {
	w.chunk.SetFinished(true)
	logger.Debugf("chunk %d finished, %d bytes", w.chunk.ID, w.chunk.Downloaded())
	w.sink.OnChunkFinished(w.chunk.ID)
}

func (w *Worker) finishError(reason string, cause error) {
	logger.Errorf("chunk %d failed: %s: %v", w.chunk.ID, reason, cause)
	w.sink.OnChunkError(w.chunk.ID, reason, cause)
}

func (w *Worker) finishInterrupted() {
	logger.Debugf("chunk %d interrupted at %d bytes", w.chunk.ID, w.chunk.Downloaded())
	w.sink.OnChunkInterrupted(w.chunk.ID)
}

// RemainingBytes returns end - begin + 1 - downloaded, or -1 for an
// unknown-length (non-resumable) chunk. Callable from the moderator thread.
func (w *Worker) RemainingBytes() int64 {
	return w.chunk.RemainingBytes()
}

// minSplitRemainder is the recommended 2x MIN_CHUNK_LENGTH threshold
// below which a chunk is not worth splitting further.
const minSplitRemainder = 2 * 1024 * 1024

// SplitChunk atomically narrows this worker's effective end and returns a
// new Chunk covering the tail, or nil if the remaining range is too small
// to divide or the chunk is non-resumable. Callable from the moderator
// thread only, per the split_large_chunk algorithm.
func (w *Worker) SplitChunk(newID int64, minChunkLength int64) *model.Chunk {
	if !w.resumable {
		return nil
	}

	threshold := int64(minSplitRemainder)
	if 2*minChunkLength > threshold {
		threshold = 2 * minChunkLength
	}

	w.splitMu.Lock()
	defer w.splitMu.Unlock()

	end := w.chunk.End()
	if end < 0 {
		return nil
	}

	remaining := end - (w.chunk.Begin + w.chunk.Downloaded()) + 1
	if remaining <= threshold {
		return nil
	}

	mid := w.chunk.Begin + w.chunk.Downloaded() + remaining/2
	newChunk := model.NewChunk(newID, w.chunk.TaskID, mid, end)
	w.chunk.SetEnd(mid - 1)

	return newChunk
}

