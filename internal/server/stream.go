// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// handleSSE streams a run as Server-Sent Events: one "data: {json}" frame per
// event.
func (h *handlers) handleSSE(w http.ResponseWriter, r *http.Request) {
	h.streamHTTP(w, r, "text/event-stream", func(w http.ResponseWriter, data []byte) error {
		_, err := fmt.Fprintf(w, "data: %s\n\n", data)
		return err
	})
}

// handleNDJSON streams a run as newline-delimited JSON.
func (h *handlers) handleNDJSON(w http.ResponseWriter, r *http.Request) {
	h.streamHTTP(w, r, "application/x-ndjson", func(w http.ResponseWriter, data []byte) error {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	})
}

func (h *handlers) streamHTTP(w http.ResponseWriter, r *http.Request, contentType string, frame func(http.ResponseWriter, []byte) error) {
	req, ok := h.decodeRunRequest(w, r)
	if !ok {
		return
	}
	events, ok := h.startRun(w, r, req)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	// Long runs outlive any server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.Flush()

	err := forward(r.Context(), events, func(ev types.ProgressEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if err := frame(w, data); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil && r.Context().Err() == nil {
		h.logger.Warn("stream aborted", "error", err, "request_id", RequestIDFromContext(r.Context()))
	}
}

// wsReadTimeout bounds the wait for the client's request frame.
const wsReadTimeout = 30 * time.Second

// handleWS streams a run over a WebSocket. The client's first text frame is
// the JSON request; events follow as text frames and the server closes the
// connection after the terminal event.
func (h *handlers) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.maxBodyBytes)

	readCtx, cancel := context.WithTimeout(r.Context(), wsReadTimeout)
	req := pipeline.Request{UseRAG: true}
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		h.logger.Warn("websocket request unreadable", "error", err)
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	// CloseRead handles control frames and cancels ctx when the peer goes
	// away, which stops the run.
	ctx := conn.CloseRead(r.Context())

	events, err := h.deps.Runner.Run(ctx, req)
	if err != nil {
		msg := "could not start run"
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			msg = ve.Error()
		}
		_ = h.wsSend(ctx, conn, types.ProgressEvent{
			Status: types.StatusError, Stage: "validation", Message: msg, Time: time.Now(),
		})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	err = forward(ctx, events, func(ev types.ProgressEvent) error {
		return h.wsSend(ctx, conn, ev)
	})
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("websocket stream aborted", "error", err)
		}
		return
	}
	conn.Close(websocket.StatusNormalClosure, "run finished")
}

func (h *handlers) wsSend(ctx context.Context, conn *websocket.Conn, ev types.ProgressEvent) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
