package model_test

import (
	"testing"

	"github.com/arjunv/modfetch/internal/model"
)

func TestNewTask_Defaults(t *testing.T) {
	task := model.NewTask(1, "http://example.com/f.bin", "/tmp/f.bin", model.TaskOptions{})

	if task.MaxChunks != 1 || task.MaxParallelConns != 1 {
		t.Errorf("expected defaults of 1, got MaxChunks=%d MaxParallelConns=%d", task.MaxChunks, task.MaxParallelConns)
	}
	if task.Status() != model.StatusIdle {
		t.Errorf("expected StatusIdle, got %v", task.Status())
	}
	if _, known := task.TotalLength(); known {
		t.Error("expected unknown length on a new task")
	}
}

func TestTask_FailIsAbsorbing(t *testing.T) {
	task := model.NewTask(1, "http://example.com", "/tmp/f", model.TaskOptions{})

	task.Fail("boom")
	if task.Status() != model.StatusFailed {
		t.Errorf("expected StatusFailed, got %v", task.Status())
	}
	if task.Message() != "boom" {
		t.Errorf("expected message 'boom', got %q", task.Message())
	}
	if !task.Status().Done() {
		t.Error("expected Done() to be true for a failed task")
	}
}

func TestTask_MarshalRoundTrip(t *testing.T) {
	task := model.NewTask(7, "http://example.com/f.bin", "/tmp/f.bin", model.TaskOptions{MaxChunks: 4, MaxParallelConns: 2})
	task.SetTotalLength(1024)
	task.SetResumable(true)
	task.SetStatus(model.StatusWaiting)

	data, err := task.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var restored model.Task
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	if restored.ID != 7 || restored.MaxChunks != 4 || restored.MaxParallelConns != 2 {
		t.Errorf("basic fields did not survive round trip: %+v", restored)
	}
	if length, known := restored.TotalLength(); !known || length != 1024 {
		t.Errorf("expected length 1024/known, got %d/%v", length, known)
	}
	if !restored.Resumable() {
		t.Error("expected Resumable to survive round trip")
	}
	if restored.Status() != model.StatusWaiting {
		t.Errorf("expected StatusWaiting, got %v", restored.Status())
	}
}
