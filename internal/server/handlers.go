package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/jobs"
	"github.com/imosed/vodub/internal/store"
)

type dubRequest struct {
	VideoID    string `json:"videoId"`
	TargetLang string `json:"targetLang"`
}

func (s *Server) handleDub(w http.ResponseWriter, r *http.Request) {
	var req dubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.VideoID == "" || req.TargetLang == "" {
		http.Error(w, "videoId and targetLang are required", http.StatusBadRequest)
		return
	}

	job := s.manager.Create(req.VideoID, req.TargetLang)
	if err := s.records.Insert(r.Context(), job); err != nil {
		s.log.Error("persist job", zap.String("job", job.ID), zap.Error(err))
		http.Error(w, "could not create job", http.StatusInternalServerError)
		return
	}

	go s.runJob(job)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := s.manager.Get(id)
	if !ok {
		// Finished jobs of earlier processes live only in the store.
		persisted, err := s.records.Get(r.Context(), id)
		if errors.Is(err, store.ErrJobNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "job lookup failed", http.StatusInternalServerError)
			return
		}
		job = persisted
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	events := s.bus.Since(id, since)
	if events == nil {
		events = []jobs.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	object := mux.Vars(r)["object"]

	asset, modTime, err := s.assets.Open(r.Context(), object)
	if err != nil {
		s.log.Warn("open asset", zap.String("object", object), zap.Error(err))
		http.NotFound(w, r)
		return
	}
	defer asset.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, object, modTime, asset)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var seq int64
	for {
		for _, event := range s.bus.Since(id, seq) {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			seq = event.Seq
		}

		if job, ok := s.manager.Get(id); ok && job.Status.Terminal() {
			if len(s.bus.Since(id, seq)) == 0 {
				return
			}
			continue
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.poll):
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) publish(jobID string, typ jobs.EventType, status domain.JobStatus, message string) {
	s.bus.Publish(jobs.Event{JobID: jobID, Type: typ, Status: status, Message: message})
}
