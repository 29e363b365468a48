package moderator_test

import (
	"strings"
	"testing"

	"github.com/arjunv/modfetch/internal/events"
	"github.com/arjunv/modfetch/internal/model"
	"github.com/arjunv/modfetch/internal/moderator"
)

func TestModerator_GetTaskAndListTasks(t *testing.T) {
	store := newFakeStore()
	http := newFakeHTTPClient()
	files, _ := newTestFiles(t)

	http.serve("http://example.com/a.bin", []byte("aaa"), false)
	http.serve("http://example.com/b.bin", []byte("bbb"), false)

	m, err := moderator.New(store, http, files, moderator.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Release()

	if _, ok := m.GetTask(999); ok {
		t.Fatalf("GetTask(999) should not find an unknown task")
	}

	a, err := m.AddTask("http://example.com/a.bin", "/downloads/a.bin", model.TaskOptions{})
	if err != nil {
		t.Fatalf("AddTask a: %v", err)
	}
	b, err := m.AddTask("http://example.com/b.bin", "/downloads/b.bin", model.TaskOptions{})
	if err != nil {
		t.Fatalf("AddTask b: %v", err)
	}

	got, ok := m.GetTask(a.ID)
	if !ok || got.URL != a.URL {
		t.Fatalf("GetTask(%d) = %+v, %v", a.ID, got, ok)
	}

	all := m.ListTasks()
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("ListTasks returned %+v, want [a, b] in insertion order", all)
	}

	if chunks := m.ChunksOf(a.ID); chunks != nil {
		t.Fatalf("ChunksOf before Start should be empty, got %v", chunks)
	}
}

func TestModerator_ResumableTaskWithDefaultOptionsFinishes(t *testing.T) {
	store := newFakeStore()
	http := newFakeHTTPClient()
	files, _ := newTestFiles(t)

	body := strings.Repeat("abcdefghij", 1024*1024) // 10 MiB, resumable
	http.serve("http://example.com/large.bin", []byte(body), true)

	cfg := moderator.DefaultConfig()
	cfg.MaxWorkers = 8
	cfg.MinChunkLength = 1 << 20

	m, err := moderator.New(store, http, files, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Release()

	ch := collectEvents(m)
	m.Start()

	task, err := m.AddTask("http://example.com/large.bin", "/downloads/large.bin", model.TaskOptions{})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	// dispatchProgress only fires from the one-second speed ticker, so
	// this asserts on TaskFinished (which every run reaches) rather than
	// waiting a full tick for a ChunkProgress event to land.
	waitForStatus(t, ch, events.TaskFinished, task.ID)
}
