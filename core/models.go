package core

// Segment is one timestamped span of transcript text as produced by the
// speech-to-text service. Segments are ordered chronologically per lecture.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Chunk is the unit of embedding and retrieval: a bounded span of transcript
// text with its timestamp range. Start/End are nil for chunks produced from
// plain text without timestamps.
type Chunk struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

func (c Chunk) HasTimestamps() bool {
	return c.Start != nil && c.End != nil
}

// RetrievalResult is one ranked hit from a similarity search. Ephemeral,
// produced per query, never persisted.
type RetrievalResult struct {
	ChunkText  string   `json:"chunk_text"`
	Similarity float64  `json:"similarity"`
	Start      *float64 `json:"start,omitempty"`
	End        *float64 `json:"end,omitempty"`
	ChunkIndex int      `json:"chunk_index"`
}

type Source struct {
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

type TimestampRef struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Excerpt string  `json:"excerpt"`
}

// AnswerResult is the grounded answer returned to the chat endpoint.
type AnswerResult struct {
	Response      string         `json:"response"`
	Sources       []Source       `json:"sources"`
	TimestampRefs []TimestampRef `json:"timestamp_references"`
}
