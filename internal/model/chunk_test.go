package model_test

import (
	"testing"

	"github.com/arjunv/modfetch/internal/model"
)

func TestChunk_SizeAndRemaining(t *testing.T) {
	c := model.NewChunk(1, 1, 0, 99)

	if got := c.Size(); got != 100 {
		t.Errorf("expected size 100, got %d", got)
	}

	c.SetDownloaded(40)
	if got := c.RemainingBytes(); got != 60 {
		t.Errorf("expected remaining 60, got %d", got)
	}
}

func TestChunk_WholeFileMarker(t *testing.T) {
	c := model.NewChunk(1, 1, 0, -1)

	if got := c.Size(); got != -1 {
		t.Errorf("expected -1 size for whole-file chunk, got %d", got)
	}
	if got := c.RemainingBytes(); got != -1 {
		t.Errorf("expected -1 remaining for whole-file chunk, got %d", got)
	}
}

func TestChunk_AddDownloadedAndFinished(t *testing.T) {
	c := model.NewChunk(1, 1, 0, 9)

	if c.AddDownloaded(5) != 5 {
		t.Fatal("expected cumulative downloaded of 5")
	}
	if c.AddDownloaded(5) != 10 {
		t.Fatal("expected cumulative downloaded of 10")
	}

	c.SetFinished(true)
	if !c.Finished() {
		t.Error("expected Finished to be true")
	}
}

func TestChunk_MarshalRoundTrip(t *testing.T) {
	c := model.NewChunk(3, 1, 10, 20)
	c.SetDownloaded(5)
	c.SetFinished(true)

	data, err := c.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var restored model.Chunk
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	if restored.ID != 3 || restored.TaskID != 1 || restored.Begin != 10 || restored.End() != 20 {
		t.Errorf("basic fields did not survive round trip: %+v", restored)
	}
	if restored.Downloaded() != 5 || !restored.Finished() {
		t.Errorf("expected downloaded=5 finished=true, got %d/%v", restored.Downloaded(), restored.Finished())
	}
}
