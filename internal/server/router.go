package server

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the chatbot API and the health probe.
func RegisterRoutes(app *fiber.App, h *ChatbotHandler) {
	app.Get("/health", Health)

	api := app.Group("/api/chatbot")
	api.Post("/chat", h.Chat)
	api.Get("/sessions", h.Sessions)
	api.Get("/session/:chatId", h.Session)
}
