package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecamozu/career-agent/internal/agent"
	"github.com/ecamozu/career-agent/internal/auditlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxMessageBytes = 64 << 10

// Processor runs one employer message through the full draft and review
// cycle. Satisfied by *agent.Agent.
type Processor interface {
	Process(ctx context.Context, employerMessage string) (*agent.Result, error)
}

// Auditor reads back recorded sessions. Satisfied by *auditlog.Store.
type Auditor interface {
	Recent(ctx context.Context, limit int) ([]*auditlog.Entry, error)
}

// Handler exposes the agent over HTTP.
type Handler struct {
	processor Processor
	auditor   Auditor
	logger    *zap.Logger
}

func NewHandler(processor Processor, auditor Auditor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{processor: processor, auditor: auditor, logger: logger}
}

// Router builds the full service router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SubmitMessage)
		r.Get("/sessions", h.ListSessions)
	})

	return r
}

type submitRequest struct {
	Message string `json:"message"`
}

type submitResponse struct {
	SessionID    string              `json:"session_id"`
	EmployerName string              `json:"employer_name,omitempty"`
	Reply        string              `json:"reply"`
	Outcome      string              `json:"outcome"`
	Score        float64             `json:"score"`
	Revisions    int                 `json:"revisions"`
	Flagged      bool                `json:"flagged"`
	Flags        []agent.FlagPayload `json:"flags,omitempty"`
}

// SubmitMessage accepts an employer message and processes it synchronously.
// The caller gets the final reply; email notifications happen out of band.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.processor.Process(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("message processing failed", zap.Error(err))

		var genErr *agent.GenerationError
		if errors.As(err, &genErr) {
			Error(w, http.StatusBadGateway, "reply generation failed")
			return
		}
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := submitResponse{
		SessionID:    result.SessionID,
		EmployerName: result.EmployerName,
		Reply:        result.Reply,
		Outcome:      string(result.Outcome),
		Revisions:    result.Revisions,
		Flagged:      result.Flagged,
		Flags:        result.Flags,
	}
	if result.Evaluation != nil {
		resp.Score = result.Evaluation.Score
	}

	JSON(w, http.StatusOK, resp)
}

// ListSessions returns the most recent audit log entries.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		Error(w, http.StatusNotFound, "audit log disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer up to 500")
			return
		}
		limit = parsed
	}

	entries, err := h.auditor.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing sessions failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []*auditlog.Entry{}
	}

	JSON(w, http.StatusOK, map[string]any{"sessions": entries})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
