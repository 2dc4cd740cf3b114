// Package store persists finished recordings: WAV files in a directory
// plus a JSON index with metadata and transcripts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const indexFileName = "recordings.json"

// ErrNotFound means no recording with the given ID exists.
var ErrNotFound = errors.New("recording not found")

// Recording is one saved capture session.
type Recording struct {
	ID              uuid.UUID `json:"id"`
	FileName        string    `json:"file_name"`
	Title           string    `json:"title"`
	RecordedAt      time.Time `json:"recorded_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Transcript      string    `json:"transcript"`
}

// NewRecording allocates an ID and timestamps a recording; the WAV file
// name is derived from both so it never collides.
func NewRecording(title string, duration float64, transcript string) Recording {
	id := uuid.New()
	now := time.Now()
	return Recording{
		ID:              id,
		FileName:        fmt.Sprintf("%s-%s.wav", now.Format("20060102-150405"), id.String()[:8]),
		Title:           title,
		RecordedAt:      now,
		DurationSeconds: duration,
		Transcript:      transcript,
	}
}

// Store is the on-disk recording library. It is not safe for concurrent
// use; the CLI accesses it from one goroutine.
type Store struct {
	dir        string
	recordings []Recording
}

// Open loads the library at dir, creating the directory and an empty
// index as needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &Store{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read recording index: %w", err)
	}

	if err := json.Unmarshal(data, &s.recordings); err != nil {
		return nil, fmt.Errorf("parse recording index: %w", err)
	}
	return s, nil
}

// Dir returns the library directory.
func (s *Store) Dir() string {
	return s.dir
}

// Recordings returns the library newest-first.
func (s *Store) Recordings() []Recording {
	out := make([]Recording, len(s.recordings))
	copy(out, s.recordings)
	return out
}

// Get looks a recording up by ID.
func (s *Store) Get(id uuid.UUID) (Recording, error) {
	for _, rec := range s.recordings {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Recording{}, ErrNotFound
}

// AudioPath returns the absolute path of a recording's WAV file.
func (s *Store) AudioPath(rec Recording) string {
	return filepath.Join(s.dir, rec.FileName)
}

// Add prepends a recording to the index and persists it. The caller is
// responsible for having written the WAV file at AudioPath first.
func (s *Store) Add(rec Recording) error {
	s.recordings = append([]Recording{rec}, s.recordings...)
	if err := s.save(); err != nil {
		s.recordings = s.recordings[1:]
		return err
	}
	return nil
}

// Delete removes a recording's index entry and WAV file.
func (s *Store) Delete(id uuid.UUID) error {
	for i, rec := range s.recordings {
		if rec.ID != id {
			continue
		}
		s.recordings = append(s.recordings[:i], s.recordings[i+1:]...)
		if err := s.save(); err != nil {
			return err
		}
		if err := os.Remove(s.AudioPath(rec)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove audio file: %w", err)
		}
		return nil
	}
	return ErrNotFound
}

// save writes the index atomically via a temp file rename.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.recordings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recording index: %w", err)
	}

	path := filepath.Join(s.dir, indexFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write recording index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace recording index: %w", err)
	}
	return nil
}
