// Package taskstore persists Task and Chunk records across restarts,
// grounded on tdm's internal/repository.BoltDBRepository: the same
// bolt.Open/CreateBucketIfNotExists-on-start pattern and json.Marshal
// per-record encoding, split across a tasks bucket and a chunks bucket
// instead of one downloads bucket.
package taskstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/arjunv/modfetch/internal/model"
)

const (
	tasksBucket  = "tasks"
	chunksBucket = "chunks"
)

// Store is the Task Store collaborator the moderator persists through.
type Store interface {
	Insert(task *model.Task) error
	Update(task *model.Task) error
	Find(id int64) (*model.Task, error)
	UndoneTasks() ([]*model.Task, error)
	Delete(id int64) error

	ChunksOf(taskID int64) ([]*model.Chunk, error)
	InsertChunk(chunk *model.Chunk) error
	UpdateChunk(chunk *model.Chunk) error
	RemoveChunksOf(taskID int64) error

	Close() error
}

// BoltStore implements Store over a single boltdb file.
type BoltStore struct {
	db *bolt.DB
}

func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(tasksBucket)); err != nil {
			return fmt.Errorf("failed to create tasks bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(chunksBucket)); err != nil {
			return fmt.Errorf("failed to create chunks bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func taskKey(id int64) []byte {
	return []byte(fmt.Sprintf("%020d", id))
}

func chunkKey(taskID, chunkID int64) []byte {
	return []byte(fmt.Sprintf("%020d:%020d", taskID, chunkID))
}

func (s *BoltStore) Insert(task *model.Task) error {
	return s.putTask(task)
}

func (s *BoltStore) Update(task *model.Task) error {
	return s.putTask(task)
}

func (s *BoltStore) putTask(task *model.Task) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task %d: %w", task.ID, err)
		}

		return tx.Bucket([]byte(tasksBucket)).Put(taskKey(task.ID), data)
	})
}

func (s *BoltStore) Find(id int64) (*model.Task, error) {
	var task model.Task

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(tasksBucket)).Get(taskKey(id))
		if data == nil {
			return fmt.Errorf("task %d not found", id)
		}

		return json.Unmarshal(data, &task)
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// UndoneTasks returns every task whose status is not a terminal state,
// in key order, for the moderator's restart-time requeue pass.
func (s *BoltStore) UndoneTasks() ([]*model.Task, error) {
	var tasks []*model.Task

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tasksBucket)).ForEach(func(_, v []byte) error {
			var task model.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}

			if !task.Status().Done() {
				tasks = append(tasks, &task)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *BoltStore) Delete(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tasksBucket)).Delete(taskKey(id))
	})
}

func (s *BoltStore) ChunksOf(taskID int64) ([]*model.Chunk, error) {
	prefix := []byte(fmt.Sprintf("%020d:", taskID))
	var chunks []*model.Chunk

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(chunksBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var chunk model.Chunk
			if err := json.Unmarshal(v, &chunk); err != nil {
				return fmt.Errorf("failed to unmarshal chunk: %w", err)
			}
			chunks = append(chunks, &chunk)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

func (s *BoltStore) InsertChunk(chunk *model.Chunk) error {
	return s.putChunk(chunk)
}

func (s *BoltStore) UpdateChunk(chunk *model.Chunk) error {
	return s.putChunk(chunk)
}

func (s *BoltStore) putChunk(chunk *model.Chunk) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %d: %w", chunk.ID, err)
		}

		return tx.Bucket([]byte(chunksBucket)).Put(chunkKey(chunk.TaskID, chunk.ID), data)
	})
}

func (s *BoltStore) RemoveChunksOf(taskID int64) error {
	prefix := []byte(fmt.Sprintf("%020d:", taskID))

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(chunksBucket))
		c := bucket.Cursor()

		var keys [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
