package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/history"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/rag"
)

// ChatHandler handles the conversational endpoints.
//
// Endpoints:
//   - POST /api/chat     - run one chat turn and return the answer
//   - GET  /api/history  - full transcript for a user, oldest first
//   - GET  /api/welcome  - session-opening greeting for a user
type ChatHandler struct {
	system   *rag.System
	messages *history.Store
	logger   log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(system *rag.System, messages *history.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{system: system, messages: messages, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/welcome", h.handleWelcome)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// handleChat runs one chat turn: record the user message, answer it
// with the recent conversation as context, record the answer.
//
// The answer pipeline itself never fails this request: dependency
// failures surface as canned sentences in the response body. Only a
// bad request or a failure to persist the user's message produce an
// error status.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	ctx := r.Context()
	if _, err := h.messages.Append(ctx, req.UserID, history.SenderUser, req.Message); err != nil {
		h.logger.Error("failed to record user message", "error", err, "user_id", req.UserID)
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to record message")
		return
	}

	// The window includes the message just recorded. The composer
	// presents the query in its own section, so drop it from the
	// rendered history to avoid showing it twice.
	window, err := h.messages.Recent(ctx, req.UserID, h.system.HistoryWindow())
	if err != nil {
		h.logger.Warn("failed to load conversation window", "error", err, "user_id", req.UserID)
		window = nil
	}
	window = trimLatest(window, req.Message)

	answer := h.system.Answer(ctx, req.Message, window)

	if _, err := h.messages.Append(ctx, req.UserID, history.SenderAssistant, answer); err != nil {
		// The user already has the answer on the wire; losing the
		// transcript row is not worth failing the request.
		h.logger.Warn("failed to record assistant message", "error", err, "user_id", req.UserID)
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: answer})
}

// trimLatest removes the trailing user message from the window when it
// matches the current query.
func trimLatest(window []history.Message, query string) []history.Message {
	n := len(window)
	if n > 0 && window[n-1].Sender == history.SenderUser && window[n-1].Message == query {
		return window[:n-1]
	}
	return window
}

// HistoryResponse is the response body for GET /api/history.
type HistoryResponse struct {
	Messages []history.Message `json:"messages"`
}

func (h *ChatHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	messages, err := h.messages.All(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to load history")
		return
	}
	if messages == nil {
		messages = []history.Message{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Messages: messages})
}

// WelcomeResponse is the response body for GET /api/welcome.
type WelcomeResponse struct {
	Message string `json:"message"`
}

func (h *ChatHandler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	ctx := r.Context()
	last, found, err := h.messages.LastUserMessage(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load last user message", "error", err, "user_id", userID)
		found = false
	}
	if !found {
		last = ""
	}
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: h.system.Greet(ctx, last)})
}
