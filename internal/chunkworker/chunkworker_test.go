package chunkworker_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/arjunv/modfetch/internal/chunkworker"
	"github.com/arjunv/modfetch/internal/filemanager"
	"github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/speedmeter"
)

type fakeClient struct {
	body      string
	openErr   error
	gotBegin  int64
	gotEnd    int64
	failAfter int // if > 0, returns an error after this many bytes via a faulty reader
}

func (f *fakeClient) FetchContentLength(ctx context.Context, url string, headers map[string]string) (int64, bool, error) {
	return int64(len(f.body)), true, nil
}

func (f *fakeClient) Open(ctx context.Context, url string, begin, end int64, headers map[string]string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}

	f.gotBegin = begin
	f.gotEnd = end

	if f.failAfter > 0 {
		return io.NopCloser(&faultyReader{data: []byte(f.body), failAfter: f.failAfter}), nil
	}

	return io.NopCloser(strings.NewReader(f.body)), nil
}

type faultyReader struct {
	data      []byte
	pos       int
	failAfter int
}

func (r *faultyReader) Read(p []byte) (int, error) {
	if r.pos >= r.failAfter {
		return 0, errors.New("connection reset")
	}
	n := copy(p, r.data[r.pos:])
	if r.pos+n > r.failAfter {
		n = r.failAfter - r.pos
	}
	r.pos += n
	return n, nil
}

type fakeSink struct {
	mu          sync.Mutex
	finished    []int64
	errored     []int64
	interrupted []int64
}

func (s *fakeSink) OnChunkFinished(chunkID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, chunkID)
}

func (s *fakeSink) OnChunkError(chunkID int64, reason string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored = append(s.errored, chunkID)
}

func (s *fakeSink) OnChunkInterrupted(chunkID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = append(s.interrupted, chunkID)
}

func newTestFiles(t *testing.T) filemanager.Manager {
	t.Helper()
	m, err := filemanager.New(afero.NewMemMapFs(), "/spill")
	if err != nil {
		t.Fatalf("filemanager.New: %v", err)
	}
	return m
}

func TestWorker_StartDownloadsFullChunk(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	client := &fakeClient{body: "0123456789"}
	sink := &fakeSink{}
	files := newTestFiles(t)
	speed := speedmeter.New()

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speed, sink)
	w.Start(context.Background())

	if len(sink.finished) != 1 || sink.finished[0] != 1 {
		t.Fatalf("expected chunk 1 to finish, got finished=%v errored=%v", sink.finished, sink.errored)
	}
	if !chunk.Finished() {
		t.Error("expected chunk.Finished() to be true")
	}
	if chunk.Downloaded() != 10 {
		t.Errorf("expected 10 bytes downloaded, got %d", chunk.Downloaded())
	}
}

func TestWorker_ResumesFromDownloadedOffset(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	chunk.SetDownloaded(4)

	client := &fakeClient{body: "456789"}
	sink := &fakeSink{}
	files := newTestFiles(t)

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speedmeter.New(), sink)
	w.Start(context.Background())

	if client.gotBegin != 4 || client.gotEnd != 9 {
		t.Errorf("expected ranged request [4,9], got [%d,%d]", client.gotBegin, client.gotEnd)
	}
	if len(sink.finished) != 1 {
		t.Fatalf("expected finish, got errored=%v", sink.errored)
	}
}

func TestWorker_NonResumableRequestsWholeRange(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, -1)
	client := &fakeClient{body: "whole file"}
	sink := &fakeSink{}
	files := newTestFiles(t)

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, false, client, files, speedmeter.New(), sink)
	w.Start(context.Background())

	if client.gotBegin != -1 || client.gotEnd != -1 {
		t.Errorf("expected unbounded open for a non-resumable chunk, got [%d,%d]", client.gotBegin, client.gotEnd)
	}
	if len(sink.finished) != 1 {
		t.Fatalf("expected finish, got errored=%v", sink.errored)
	}
}

func TestWorker_OpenErrorReportsError(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	client := &fakeClient{openErr: errors.New("dns failure")}
	sink := &fakeSink{}
	files := newTestFiles(t)

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speedmeter.New(), sink)
	w.Start(context.Background())

	if len(sink.errored) != 1 {
		t.Fatalf("expected one error event, got finished=%v errored=%v", sink.finished, sink.errored)
	}
}

func TestWorker_ReadFailureReportsError(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	client := &fakeClient{body: "0123456789", failAfter: 5}
	sink := &fakeSink{}
	files := newTestFiles(t)

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speedmeter.New(), sink)
	w.Start(context.Background())

	if len(sink.errored) != 1 {
		t.Fatalf("expected one error event, got finished=%v errored=%v", sink.finished, sink.errored)
	}
	if chunk.Downloaded() != 5 {
		t.Errorf("expected partial progress of 5 bytes before the failure, got %d", chunk.Downloaded())
	}
}

func TestWorker_InterruptStopsDownloadEarly(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	client := &fakeClient{body: "0123456789"}
	sink := &fakeSink{}
	files := newTestFiles(t)

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speedmeter.New(), sink)
	w.Interrupt()
	w.Start(context.Background())

	if len(sink.interrupted) != 1 {
		t.Fatalf("expected one interrupted event, got finished=%v errored=%v interrupted=%v", sink.finished, sink.errored, sink.interrupted)
	}
}

func TestWorker_ContextCancelStopsDownload(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 9)
	client := &fakeClient{body: "0123456789"}
	sink := &fakeSink{}
	files := newTestFiles(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://example.com/f", nil, true, client, files, speedmeter.New(), sink)
	w.Start(ctx)

	if len(sink.interrupted) != 1 {
		t.Fatalf("expected one interrupted event on cancelled context, got finished=%v errored=%v", sink.finished, sink.errored)
	}
}

func TestSplitChunk_NonResumableReturnsNil(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, -1)
	files := newTestFiles(t)
	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://x", nil, false, &fakeClient{}, files, speedmeter.New(), &fakeSink{})

	if got := w.SplitChunk(2, 1024); got != nil {
		t.Errorf("expected nil split for a non-resumable chunk, got %+v", got)
	}
}

func TestSplitChunk_TooSmallReturnsNil(t *testing.T) {
	chunk := model.NewChunk(1, 1, 0, 99) // 100 bytes, well under the 2MiB threshold
	files := newTestFiles(t)
	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://x", nil, true, &fakeClient{}, files, speedmeter.New(), &fakeSink{})

	if got := w.SplitChunk(2, 1024); got != nil {
		t.Errorf("expected nil split for a chunk below the split threshold, got %+v", got)
	}
}

func TestSplitChunk_NarrowsOriginalAndReturnsTail(t *testing.T) {
	const size = 10 * 1024 * 1024
	chunk := model.NewChunk(1, 1, 0, size-1)
	files := newTestFiles(t)
	w := chunkworker.New(chunk, files.ChunkFilePath(1, 1), "http://x", nil, true, &fakeClient{}, files, speedmeter.New(), &fakeSink{})

	tail := w.SplitChunk(2, 1024)
	if tail == nil {
		t.Fatal("expected a non-nil split for a large chunk")
	}

	if tail.TaskID != 1 || tail.ID != 2 {
		t.Errorf("unexpected tail chunk identity: %+v", tail)
	}
	if tail.Begin != chunk.End()+1 {
		t.Errorf("expected tail to start right after the narrowed original end, got tail.Begin=%d original.End=%d", tail.Begin, chunk.End())
	}
	if tail.End() != size-1 {
		t.Errorf("expected tail to retain the original end %d, got %d", size-1, tail.End())
	}
}
