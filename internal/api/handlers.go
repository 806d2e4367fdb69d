package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Jeanedlune/transkv/internal/codec"
	"github.com/Jeanedlune/transkv/internal/jobqueue"
	"github.com/Jeanedlune/transkv/internal/kvstore"
)

type Server struct {
	store    kvstore.Store
	queue    *jobqueue.Queue
	validate *validator.Validate
	ready    atomic.Bool
}

func NewServer(store kvstore.Store, queue *jobqueue.Queue) *Server {
	return &Server{
		store:    store,
		queue:    queue,
		validate: validator.New(),
	}
}

// Routes mounts every handler on r.
func (s *Server) Routes(r chi.Router) {
	// KV Store routes
	r.Route("/kv", func(r chi.Router) {
		r.Get("/", s.ListKeys)
		r.Put("/{key}", s.SetValue)
		r.Post("/{key}", s.SetValue)
		r.Get("/{key}", s.GetValue)
		r.Delete("/{key}", s.DeleteValue)
	})

	// Job Queue routes
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.CreateJob)
		r.Get("/", s.ListJobs)
		r.Get("/{id}", s.GetJob)
		r.Delete("/{id}", s.DeleteJob)
	})

	// Health check endpoints
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.ReadinessCheck)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// storeError maps store failures to status codes.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kvstore.ErrUnsupportedType):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, kvstore.ErrNotLeader):
		http.Error(w, err.Error(), http.StatusMisdirectedRequest)
	case errors.Is(err, kvstore.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// KV Store handlers

// KeyValueRequest carries any JSON value. Structured values need a
// serializing value codec on the store.
type KeyValueRequest struct {
	Value any `json:"value"`
}

type KeyValueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type KeyPath struct {
	Key string `validate:"required,max=1024"`
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := KeyPath{Key: chi.URLParam(r, "key")}
	if err := s.validate.Struct(path); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return path.Key, true
}

func (s *Server) SetValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	var req KeyValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Store(r.Context(), key, req.Value); err != nil {
		storeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) GetValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	value, exists, err := s.store.Load(r.Context(), key)
	if err != nil {
		storeError(w, err)
		return
	}
	if !exists {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, KeyValueResponse{Key: key, Value: codec.Display(value)})
}

func (s *Server) DeleteValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	value, exists, err := s.store.Delete(r.Context(), key)
	if err != nil {
		storeError(w, err)
		return
	}
	if !exists {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, KeyValueResponse{Key: key, Value: codec.Display(value)})
}

func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := []any{}
	if _, err := s.store.EachKey(r.Context(), func(key any) {
		keys = append(keys, codec.Display(key))
	}); err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// Job Queue handlers
type JobRequest struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type JobResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID := s.queue.AddJob(req.Type, req.Payload)

	writeJSON(w, http.StatusCreated, JobResponse{JobID: jobID})
}

func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, exists := s.queue.GetJob(jobID)
	if !exists {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := s.queue.DeleteJob(jobID); err != nil {
		if errors.Is(err, jobqueue.ErrJobNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.ListJobs())
}
