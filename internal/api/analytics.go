package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/futuro/convai-dashboard/internal/analytics"
	"github.com/futuro/convai-dashboard/internal/auth"
	"github.com/futuro/convai-dashboard/internal/domain"
	"github.com/futuro/convai-dashboard/internal/upstream"
	"github.com/go-chi/chi/v5"
)

// RegisterAnalyticsRoutes registers the conversation data routes. All of
// them require a live session.
func (h *Handler) RegisterAnalyticsRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Middleware)
		r.Get("/conversations/{agentID}", h.ListConversations)
		r.Get("/conversations/{agentID}/export", h.ExportConversationsCSV)
		r.Get("/conversation-data-analysis/{conversationID}", h.GetDataAnalysis)
		r.Get("/conversation-transcript/{conversationID}", h.GetTranscript)
		r.Get("/conversation-tools-used/{conversationID}", h.GetToolsUsed)
		r.Get("/conversation-audio/{conversationID}/download", h.DownloadAudio)
	})
}

// ListConversations returns the normalized conversation list for the
// session's agent. The scope check runs before any upstream call.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	agentID := chi.URLParam(r, "agentID")

	if err := h.guard.Authorize(session, agentID); err != nil {
		Error(w, http.StatusForbidden, "Access denied. You can only view your own agent's data.")
		return
	}

	payload, err := h.up.ListConversations(r.Context(), agentID, h.cfg.PageSize, true)
	if err != nil {
		slog.Error("Failed to fetch conversations", "error", err, "agent_id", agentID)
		Error(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}

	agent := session.Agent()
	conversations := make([]domain.ConversationSummary, 0)
	for _, raw := range rawConversations(payload) {
		conversations = append(conversations, analytics.Summarize(raw, agent))
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"total":         len(conversations),
		"agent":         agent,
	})
}

// ExportConversationsCSV streams the conversation list as a CSV
// attachment, same data as the list endpoint plus a transcript preview.
func (h *Handler) ExportConversationsCSV(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	agentID := chi.URLParam(r, "agentID")

	if err := h.guard.Authorize(session, agentID); err != nil {
		Error(w, http.StatusForbidden, "Access denied. You can only view your own agent's data.")
		return
	}

	payload, err := h.up.ListConversations(r.Context(), agentID, h.cfg.ExportPageSize, true)
	if err != nil {
		slog.Error("Failed to fetch conversations for export", "error", err, "agent_id", agentID)
		Error(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}

	filename := fmt.Sprintf("conversations_%s_%s.csv", agentID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"Conversation ID", "Date", "Duration", "Status",
		"Success", "Messages", "Summary", "Transcript Preview",
	})

	agent := session.Agent()
	for _, raw := range rawConversations(payload) {
		summary := analytics.Summarize(raw, agent)
		_ = writer.Write([]string{
			summary.ID,
			analytics.FormatDate(raw, "2006-01-02 15:04"),
			summary.Duration,
			summary.Status,
			summary.CallSuccessful,
			fmt.Sprintf("%d", summary.MessageCount),
			summary.Summary,
			transcriptPreview(raw),
		})
	}
	writer.Flush()
}

// GetDataAnalysis returns the data-collection analysis for one
// conversation, refusing when it belongs to a different agent.
func (h *Handler) GetDataAnalysis(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, session, ok := h.fetchScopedConversation(w, r, conversationID)
	if !ok {
		return
	}

	JSON(w, http.StatusOK, analytics.Analyze(conversationID, conv, session.Agent()))
}

// GetTranscript returns the flattened transcript for one conversation.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, _, ok := h.fetchScopedConversation(w, r, conversationID)
	if !ok {
		return
	}

	JSON(w, http.StatusOK, analytics.Transcribe(conversationID, conv))
}

// GetToolsUsed returns the deduplicated tool-usage list for one
// conversation.
func (h *Handler) GetToolsUsed(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, session, ok := h.fetchScopedConversation(w, r, conversationID)
	if !ok {
		return
	}

	JSON(w, http.StatusOK, analytics.ToolReport(conversationID, conv, session.Agent()))
}

// DownloadAudio streams the recorded call audio as an attachment. The
// conversation is fetched first to enforce agent scoping.
func (h *Handler) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if _, _, ok := h.fetchScopedConversation(w, r, conversationID); !ok {
		return
	}

	audio, contentType, err := h.up.GetAudio(r.Context(), conversationID)
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		Error(w, http.StatusNotFound, "Audio not available")
		return
	case err != nil:
		slog.Error("Failed to download audio", "error", err, "conversation_id", conversationID)
		Error(w, http.StatusInternalServerError, "Failed to download audio")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "conversation_"+conversationID+"_audio.mp3"))
	_, _ = w.Write(audio)
}

// fetchScopedConversation fetches one conversation and enforces that it
// belongs to the session's agent. On failure it writes the error response
// and returns ok=false.
func (h *Handler) fetchScopedConversation(w http.ResponseWriter, r *http.Request, conversationID string) (analytics.Conversation, *domain.Session, bool) {
	session := auth.SessionFromContext(r.Context())

	raw, err := h.up.GetConversation(r.Context(), conversationID)
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		Error(w, http.StatusNotFound, "Conversation not found")
		return nil, nil, false
	case err != nil:
		slog.Error("Failed to fetch conversation", "error", err, "conversation_id", conversationID)
		Error(w, http.StatusInternalServerError, "Failed to fetch conversation data")
		return nil, nil, false
	}

	conv := analytics.Conversation(raw)
	if err := h.guard.Authorize(session, analytics.AgentID(conv)); err != nil {
		Error(w, http.StatusForbidden, "Access denied.")
		return nil, nil, false
	}

	return conv, session, true
}

func rawConversations(payload map[string]interface{}) []analytics.Conversation {
	entries, _ := payload["conversations"].([]interface{})
	out := make([]analytics.Conversation, 0, len(entries))
	for _, e := range entries {
		if m, ok := e.(map[string]interface{}); ok {
			out = append(out, analytics.Conversation(m))
		}
	}
	return out
}

func transcriptPreview(conv analytics.Conversation) string {
	turns, _ := conv["transcript"].([]interface{})
	if len(turns) == 0 {
		return ""
	}
	first, _ := turns[0].(map[string]interface{})
	message, _ := first["message"].(string)
	if len(message) > 100 {
		return message[:100] + "..."
	}
	return message
}
