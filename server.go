package main

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Server exposes a trained model over HTTP.
//
// Every handler goes through the trainer's mutex, so at most one graph
// evaluation runs at a time.
type Server struct {
	trainer *Trainer
}

// NewServer wraps a trainer whose training has finished.
func NewServer(t *Trainer) *Server {
	return &Server{trainer: t}
}

// RegisterRoutes attaches all endpoints to the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/predict", s.handlePredict)
}

// writeJSON is a helper to consistently send JSON responses.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) status() StatusResponse {
	t := s.trainer
	t.mu.Lock()
	defer t.mu.Unlock()

	resp := StatusResponse{
		Config:     t.Config,
		Model:      fmt.Sprintf("MLP(%d, %v)", t.Config.Inputs, t.Config.Sizes()),
		Params:     len(t.Model.Parameters()),
		Nodes:      t.Graph.Len(),
		OrderLen:   len(t.prog.Order()),
		History:    append([]EpochStats(nil), t.History...),
		EpochsDone: len(t.History),
	}
	if n := len(t.History); n > 0 {
		resp.LastLoss = t.History[n-1].Loss
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pixels := make([]byte, len(req.Pixels))
	for i, p := range req.Pixels {
		if p < 0 || p > 255 {
			http.Error(w, fmt.Sprintf("pixel %d out of range: %d", i, p), http.StatusBadRequest)
			return
		}
		pixels[i] = byte(p)
	}

	label, probs, err := s.trainer.Predict(pixels)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{Label: label, Probs: probs})
}
