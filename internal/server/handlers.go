// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	defaultRetrieveCount = 5
	defaultTitleCount    = 5
	maxTitleCount        = 10
)

type handlers struct {
	deps           Deps
	logger         *slog.Logger
	maxBodyBytes   int64
	allowedOrigins []string
}

// decodeRunRequest reads a pipeline request. Retrieval is on unless the body
// turns it off.
func (h *handlers) decodeRunRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	req := pipeline.Request{UseRAG: true}
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// startRun starts a run and writes the error response if it is rejected.
func (h *handlers) startRun(w http.ResponseWriter, r *http.Request, req pipeline.Request) (<-chan types.ProgressEvent, bool) {
	events, err := h.deps.Runner.Run(r.Context(), req)
	if err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
			return nil, false
		}
		h.logger.Error("starting run", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start run")
		return nil, false
	}
	return events, true
}

// retrieveRequest is the body of POST /api/retrieve.
type retrieveRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count,omitempty"`
}

type retrieveResponse struct {
	Papers      []types.RetrievedPaper `json:"papers"`
	Count       int                    `json:"count"`
	Unavailable bool                   `json:"unavailable,omitempty"`
}

func (h *handlers) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if h.deps.Retriever == nil {
		writeError(w, http.StatusServiceUnavailable, "retrieval is not configured")
		return
	}
	var req retrieveRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "topic is required", Field: "topic"})
		return
	}
	if req.Count == 0 {
		req.Count = defaultRetrieveCount
	}
	if req.Count < 1 || req.Count > pipeline.MaxLimit {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("count must be between 1 and %d", pipeline.MaxLimit), Field: "count",
		})
		return
	}

	papers, err := h.deps.Retriever.Search(r.Context(), req.Topic, req.Count)
	resp := retrieveResponse{Papers: papers, Count: len(papers)}
	switch {
	case err == nil:
	case errors.Is(err, retrieval.ErrUnavailable):
		resp.Unavailable = true
	case r.Context().Err() != nil:
		return
	default:
		h.logger.Warn("retrieval failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		resp.Unavailable = true
	}
	if resp.Papers == nil {
		resp.Papers = []types.RetrievedPaper{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// titlesRequest is the body of POST /api/titles.
type titlesRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count,omitempty"`
}

func (h *handlers) handleTitles(w http.ResponseWriter, r *http.Request) {
	if h.deps.Titles == nil {
		writeError(w, http.StatusServiceUnavailable, "title generation is not configured")
		return
	}
	var req titlesRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if len([]rune(req.Topic)) < pipeline.MinTopicChars {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("topic must be at least %d characters", pipeline.MinTopicChars), Field: "topic",
		})
		return
	}
	if req.Count == 0 {
		req.Count = defaultTitleCount
	}
	if req.Count < 1 || req.Count > maxTitleCount {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("count must be between 1 and %d", maxTitleCount), Field: "count",
		})
		return
	}

	titles, err := h.deps.Titles.TitleOptions(r.Context(), req.Topic, req.Count)
	if err != nil {
		h.logger.Error("title options failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusBadGateway, "title generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

// surveyRequest is the body of POST /api/surveys. Papers, when given, are
// surveyed as-is instead of retrieving count papers for the topic.
type surveyRequest struct {
	Topic  string                 `json:"topic"`
	Count  int                    `json:"count,omitempty"`
	Papers []types.RetrievedPaper `json:"papers,omitempty"`
}

func (h *handlers) handleSurvey(w http.ResponseWriter, r *http.Request) {
	if h.deps.Surveys == nil {
		writeError(w, http.StatusServiceUnavailable, "survey generation is not configured")
		return
	}
	var req surveyRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	survey, err := h.deps.Surveys.Survey(r.Context(), pipeline.SurveyRequest{
		Topic: req.Topic, Limit: req.Count, Papers: req.Papers,
	})
	var ve *pipeline.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, survey)
	case errors.As(err, &ve):
		field := ve.Field
		if field == "limit" {
			field = "count"
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: field})
	case errors.Is(err, pipeline.ErrNoLiterature):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Field: "topic"})
	case r.Context().Err() != nil:
	default:
		h.logger.Error("survey failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusBadGateway, "survey generation failed")
	}
}

// purgeRequest is the body of POST /api/cache/purge.
type purgeRequest struct {
	All bool `json:"all"`
}

func (h *handlers) handlePurge(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache is not configured")
		return
	}
	var req purgeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	mode := cache.PurgeExpired
	if req.All {
		mode = cache.PurgeAll
	}
	removed, err := h.deps.Cache.Purge(r.Context(), mode)
	if err != nil {
		h.logger.Error("cache purge failed", "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}
	h.logger.Info("cache purged", "mode", mode, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "mode": mode})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   h.deps.Version,
		"provider":  h.deps.Provider,
		"retrieval": h.deps.Retriever != nil,
		"time":      time.Now().UTC(),
	})
}

// sendTimeout bounds one write to a streaming client.
const sendTimeout = 30 * time.Second

// forward copies events to send until the stream closes or send fails. A
// failed send cancels the run through the request context when the handler
// returns.
func forward(ctx context.Context, events <-chan types.ProgressEvent, send func(types.ProgressEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := send(ev); err != nil {
				return err
			}
		}
	}
}
