package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/rag"
	"lectureRAG/transcript"
)

// Server is the thin HTTP surface the surrounding application drives. All
// behavior lives in the pipeline packages; handlers only decode, delegate, and
// map errors to statuses.
type Server struct {
	cfg         *config.Config
	store       *transcript.Store
	indexer     *rag.Indexer
	engine      *rag.Engine
	transcriber transcript.Transcriber
	backend     string
}

func New(cfg *config.Config, store *transcript.Store, indexer *rag.Indexer, engine *rag.Engine, transcriber transcript.Transcriber) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		indexer:     indexer,
		engine:      engine,
		transcriber: transcriber,
		backend:     cfg.Store,
	}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/transcript", s.transcriptHandler)
	mux.HandleFunc("/transcribe", s.transcribeHandler)
	mux.HandleFunc("/rebuild", s.rebuildHandler)
	mux.HandleFunc("/query", s.queryHandler)
	mux.HandleFunc("/summarize", s.summarizeHandler)
	mux.HandleFunc("/health", s.healthHandler)
}

type transcriptRequest struct {
	LectureID string         `json:"lecture_id"`
	Segments  []core.Segment `json:"segments"`
	Text      string         `json:"text"`
}

type transcriptResponse struct {
	LectureID string `json:"lecture_id"`
	Segments  int    `json:"segments"`
}

// transcriptHandler ingests a transcript produced by the external
// transcription collaborator: either timestamped segments or plain text.
func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Segments) == 0 && strings.TrimSpace(req.Text) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "segments or text required"})
		return
	}
	for _, seg := range req.Segments {
		if seg.Start < 0 || seg.End < seg.Start {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "segment timestamps must satisfy 0 <= start <= end"})
			return
		}
	}

	lectureID := req.LectureID
	if lectureID == "" {
		lectureID = uuid.NewString()
	}

	var err error
	if len(req.Segments) > 0 {
		err = s.store.Save(lectureID, req.Segments)
	} else {
		err = s.store.SaveText(lectureID, req.Text)
	}
	if err != nil {
		log.Printf("lecture %s: save transcript failed: %v", lectureID, err)
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store transcript"})
		return
	}
	core.WriteJSON(w, http.StatusOK, transcriptResponse{LectureID: lectureID, Segments: len(req.Segments)})
}

type transcribeRequest struct {
	LectureID string `json:"lecture_id"`
	AudioPath string `json:"audio_path"`
}

// transcribeHandler invokes the external speech-to-text service for an audio
// file already extracted by the collaborator, and stores the result.
func (s *Server) transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.AudioPath == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "audio_path required"})
		return
	}

	lectureID := req.LectureID
	if lectureID == "" {
		lectureID = uuid.NewString()
	}

	segments, err := s.transcriber.Transcribe(r.Context(), req.AudioPath)
	if err != nil {
		log.Printf("lecture %s: transcription failed: %v", lectureID, err)
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "transcription failed"})
		return
	}
	if err := s.store.Save(lectureID, segments); err != nil {
		log.Printf("lecture %s: save transcript failed: %v", lectureID, err)
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store transcript"})
		return
	}
	core.WriteJSON(w, http.StatusOK, transcriptResponse{LectureID: lectureID, Segments: len(segments)})
}

type rebuildRequest struct {
	LectureID string `json:"lecture_id"`
}

type rebuildResponse struct {
	LectureID string `json:"lecture_id"`
	Chunks    int    `json:"chunks"`
	Stored    int    `json:"stored"`
}

func (s *Server) rebuildHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req rebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LectureID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "lecture_id required"})
		return
	}

	chunks, stored, err := s.indexer.Rebuild(r.Context(), req.LectureID)
	if err != nil {
		s.writeError(w, req.LectureID, "rebuild", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, rebuildResponse{LectureID: req.LectureID, Chunks: chunks, Stored: stored})
}

type queryRequest struct {
	LectureID string   `json:"lecture_id"`
	Question  string   `json:"question"`
	TopK      int      `json:"top_k"`
	Threshold *float64 `json:"threshold"`
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.LectureID == "" || strings.TrimSpace(req.Question) == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "lecture_id and question required"})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	threshold := s.cfg.SimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	result, err := s.engine.AnswerWithOptions(r.Context(), req.LectureID, req.Question, topK, threshold)
	if err != nil {
		s.writeError(w, req.LectureID, "query", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}

type summarizeRequest struct {
	LectureID string `json:"lecture_id"`
}

type summarizeResponse struct {
	LectureID string `json:"lecture_id"`
	Summary   string `json:"summary"`
}

func (s *Server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LectureID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "lecture_id required"})
		return
	}

	summary, err := s.engine.Summarize(r.Context(), req.LectureID)
	if err != nil {
		s.writeError(w, req.LectureID, "summarize", err)
		return
	}
	core.WriteJSON(w, http.StatusOK, summarizeResponse{LectureID: req.LectureID, Summary: summary})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.backend,
	})
}

// writeError maps pipeline errors to statuses. Provider error text stays in
// the logs; clients get fixed messages.
func (s *Server) writeError(w http.ResponseWriter, lectureID, op string, err error) {
	log.Printf("lecture %s: %s failed: %v", lectureID, op, err)
	switch {
	case core.IsNotFound(err):
		core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "index not ready: " + err.Error()})
	case core.IsConfigError(err):
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "service misconfigured; check server logs"})
	default:
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "request failed; check server logs"})
	}
}
