package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lectureRAG/core"
)

// Transcript is the per-lecture artifact handed over by the transcription
// collaborator. Segments carry timestamps; Text is the full plain text and is
// the only populated field when a lecture was ingested without timestamps.
type Transcript struct {
	LectureID string         `json:"lecture_id"`
	Segments  []core.Segment `json:"segments,omitempty"`
	Text      string         `json:"text"`
}

// Store persists one JSON file per lecture under its data directory. The
// surrounding application's database owns lecture metadata; this store only
// holds the raw timestamped text the pipeline consumes.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(lectureID string) string {
	return filepath.Join(s.dir, lectureID+".json")
}

// Save replaces the stored transcript for a lecture. Full text is derived from
// the segments so summarization never re-reads them.
func (s *Store) Save(lectureID string, segments []core.Segment) error {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			texts = append(texts, t)
		}
	}
	doc := Transcript{
		LectureID: lectureID,
		Segments:  segments,
		Text:      strings.Join(texts, " "),
	}
	return s.write(lectureID, doc)
}

// SaveText stores a transcript that has no timestamps. Chunking for such
// lectures falls back to word-boundary mode.
func (s *Store) SaveText(lectureID, text string) error {
	doc := Transcript{
		LectureID: lectureID,
		Text:      strings.TrimSpace(text),
	}
	return s.write(lectureID, doc)
}

func (s *Store) write(lectureID string, doc Transcript) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	tmp := s.path(lectureID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return os.Rename(tmp, s.path(lectureID))
}

func (s *Store) Load(lectureID string) (Transcript, error) {
	data, err := os.ReadFile(s.path(lectureID))
	if err != nil {
		if os.IsNotExist(err) {
			return Transcript{}, &core.NotFoundError{LectureID: lectureID, Resource: "transcript"}
		}
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var doc Transcript
	if err := json.Unmarshal(data, &doc); err != nil {
		return Transcript{}, fmt.Errorf("parse transcript %s: %w", lectureID, err)
	}
	return doc, nil
}

func (s *Store) Delete(lectureID string) error {
	err := os.Remove(s.path(lectureID))
	if os.IsNotExist(err) {
		return &core.NotFoundError{LectureID: lectureID, Resource: "transcript"}
	}
	return err
}
