package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
	"github.com/doganyilmaz/profile-assistant/models"
	"github.com/doganyilmaz/profile-assistant/repository"
)

const historyLimit = 20

// ChatService is what the chat endpoint needs from the orchestrator.
type ChatService interface {
	ProcessRequest(ctx context.Context, userQuery string, profileID int64) (string, error)
}

type chatRequest struct {
	ProfileID int64  `json:"profile_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Language  string `json:"language"`
	Intent    string `json:"intent"`
}

// ChatHandler answers candidate questions and records the exchange in
// the conversation store.
type ChatHandler struct {
	Service       ChatService
	Conversations repository.ConversationRepository
	Logger        *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("", h.handleChat)
	g.GET("/history", h.handleHistory)
}

func (h *ChatHandler) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProfileID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "profile_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := c.Request().Context()
	language := orchestrator.DetectLanguage(req.Message)
	intent := orchestrator.DetectIntent(req.Message, language)

	answer, err := h.Service.ProcessRequest(ctx, req.Message, req.ProfileID)
	if err != nil {
		return err
	}

	h.record(ctx, req, models.ConversationTurn{
		Role: "user", Content: req.Message,
		Intent: string(intent), Language: string(language),
		CreatedAt: time.Now().UTC(),
	})
	h.record(ctx, req, models.ConversationTurn{
		Role: "assistant", Content: answer,
		Intent: string(intent), Language: string(language),
		CreatedAt: time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Answer:    answer,
		Language:  string(language),
		Intent:    string(intent),
	})
}

// record is best effort; a conversation store outage must not fail the answer.
func (h *ChatHandler) record(ctx context.Context, req chatRequest, turn models.ConversationTurn) {
	if h.Conversations == nil {
		return
	}
	if err := h.Conversations.AppendTurn(ctx, req.ProfileID, req.SessionID, turn); err != nil {
		h.Logger.Printf("conversation append failed for session %s: %v", req.SessionID, err)
	}
}

func (h *ChatHandler) handleHistory(c echo.Context) error {
	profileID, err := strconv.ParseInt(c.QueryParam("profile_id"), 10, 64)
	if err != nil || profileID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile_id")
	}
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	if h.Conversations == nil {
		return c.JSON(http.StatusOK, []models.ConversationTurn{})
	}

	turns, err := h.Conversations.History(c.Request().Context(), profileID, sessionID, historyLimit)
	if err != nil {
		return err
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}
	return c.JSON(http.StatusOK, turns)
}
