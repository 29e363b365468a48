package mergeworker_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/arjunv/modfetch/internal/filemanager"
	"github.com/arjunv/modfetch/internal/mergeworker"
)

type fakeSink struct {
	finishedTask    int64
	finished        bool
	erroredTask     int64
	errored         bool
	interruptedTask int64
	interrupted     bool
}

func (s *fakeSink) OnMergeFinished(taskID int64) {
	s.finished = true
	s.finishedTask = taskID
}

func (s *fakeSink) OnMergeError(taskID int64, reason string, cause error) {
	s.errored = true
	s.erroredTask = taskID
}

func (s *fakeSink) OnMergeInterrupted(taskID int64) {
	s.interrupted = true
	s.interruptedTask = taskID
}

func newTestFiles(t *testing.T) (filemanager.Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := filemanager.New(fs, "/spill")
	if err != nil {
		t.Fatalf("filemanager.New: %v", err)
	}
	return m, fs
}

func TestWorker_StartConcatenatesChunks(t *testing.T) {
	files, fs := newTestFiles(t)

	src1 := files.ChunkFilePath(1, 1)
	src2 := files.ChunkFilePath(1, 2)
	files.Append(src1, bytes.NewBufferString("foo"))
	files.Append(src2, bytes.NewBufferString("bar"))

	dest := "/downloads/out.bin"
	sink := &fakeSink{}
	w := mergeworker.New(1, dest, []string{src1, src2}, files, sink)
	w.Start(context.Background())

	if !sink.finished || sink.finishedTask != 1 {
		t.Fatalf("expected merge to finish for task 1, got %+v", sink)
	}

	data, err := afero.ReadFile(fs, dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "foobar" {
		t.Errorf("expected 'foobar', got %q", data)
	}
}

func TestWorker_StartReportsConcatenateError(t *testing.T) {
	files, _ := newTestFiles(t)

	sink := &fakeSink{}
	w := mergeworker.New(1, "/downloads/out.bin", []string{"/spill/missing.part"}, files, sink)
	w.Start(context.Background())

	if !sink.errored {
		t.Fatalf("expected an error when a source spill file is missing, got %+v", sink)
	}
}

func TestWorker_InterruptBeforeStartSkipsMerge(t *testing.T) {
	files, _ := newTestFiles(t)

	sink := &fakeSink{}
	w := mergeworker.New(1, "/downloads/out.bin", nil, files, sink)
	w.Interrupt()
	w.Start(context.Background())

	if !sink.interrupted || sink.interruptedTask != 1 {
		t.Fatalf("expected an interrupted event, got %+v", sink)
	}
}

func TestWorker_ContextCancelSkipsMerge(t *testing.T) {
	files, _ := newTestFiles(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	w := mergeworker.New(1, "/downloads/out.bin", nil, files, sink)
	w.Start(ctx)

	if !sink.interrupted {
		t.Fatalf("expected an interrupted event on a cancelled context, got %+v", sink)
	}
}
