package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/agrideliver/server/internal/agent/model"
	errx "github.com/agrideliver/server/internal/core/error"
	logx "github.com/agrideliver/server/pkg/logger"
)

// TurnProcessor runs one conversational turn. Satisfied by the graph
// orchestrator; narrow so handlers can be tested against a stub.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in model.TurnInput) model.TurnResult
}

// ChatbotHandler exposes the conversational core over HTTP.
type ChatbotHandler struct {
	turns TurnProcessor
	store model.ConversationStore
}

func NewChatbotHandler(turns TurnProcessor, store model.ConversationStore) *ChatbotHandler {
	return &ChatbotHandler{turns: turns, store: store}
}

// chatRequest is the chat endpoint's body. Cart is a pointer so "absent"
// (resume the stored cart) is distinguishable from "present but empty"
// (client cleared the cart).
type chatRequest struct {
	Message string            `json:"message"`
	UserID  string            `json:"userId"`
	ChatID  string            `json:"chatId"`
	Cart    *[]model.CartLine `json:"cart"`
}

// Chat handles one user turn.
// POST /api/chatbot/chat
func (h *ChatbotHandler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message and userId are required",
		})
	}

	// A missing chatId starts a fresh session under a server-issued ID; the
	// client learns it from the response and threads it on later turns.
	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	in := model.TurnInput{
		Message:   req.Message,
		UserID:    req.UserID,
		SessionID: chatID,
	}
	if req.Cart != nil {
		in.Cart = *req.Cart
		in.CartProvided = true
	}

	started := time.Now()
	result := h.turns.ProcessTurn(c.Context(), in)
	logx.Info().
		Str("user_id", req.UserID).
		Str("chat_id", chatID).
		Str("intent", string(result.Intent)).
		Dur("elapsed", time.Since(started)).
		Msg("Chat turn completed")

	return c.JSON(result)
}

// Sessions lists a user's sessions, most recently updated first.
// GET /api/chatbot/sessions?userId=
func (h *ChatbotHandler) Sessions(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	summaries, err := h.store.ListSessions(c.Context(), userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("Failed to list sessions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": errx.SystemErrorMessage,
		})
	}

	return c.JSON(fiber.Map{"sessions": summaries})
}

// Session returns one full session transcript.
// GET /api/chatbot/session/:chatId?userId=
func (h *ChatbotHandler) Session(c *fiber.Ctx) error {
	chatID := c.Params("chatId")
	userID := c.Query("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	session, err := h.store.LoadSession(c.Context(), userID, chatID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Str("chat_id", chatID).Msg("Failed to load session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": errx.SystemErrorMessage,
		})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	return c.JSON(session)
}

// Health reports liveness.
// GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
