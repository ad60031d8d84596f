package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// unsubscribePage is shown to subscribers who follow the unsubscribe link
// from an email. It is a public page and must stay readable without any
// client-side assets.
const unsubscribePage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family: Georgia, serif; color: #2c2c2c; max-width: 480px; margin: 80px auto; text-align: center;">
  <h1 style="font-size: 1.4em;">%s</h1>
  <p style="color: #6b6b6b;">%s</p>
</body>
</html>`

type UnsubscribeHandler struct {
	registry SubscriberRegistry
}

func NewUnsubscribeHandler(registry SubscriberRegistry) (*UnsubscribeHandler, error) {
	if registry == nil {
		return nil, fmt.Errorf("subscriber registry is required")
	}
	return &UnsubscribeHandler{registry: registry}, nil
}

// RegisterUnsubscribeRoutes wires the public unsubscribe page. No auth:
// the link lands in subscriber inboxes.
func RegisterUnsubscribeRoutes(router fiber.Router, registry SubscriberRegistry) error {
	h, err := NewUnsubscribeHandler(registry)
	if err != nil {
		return err
	}

	router.Get("/unsubscribe", h.Unsubscribe)
	return nil
}

func (h *UnsubscribeHandler) Unsubscribe(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		return h.page(c, fiber.StatusBadRequest,
			"Something went wrong",
			"This unsubscribe link is missing its identifier. Please use the link from your email.")
	}

	if err := h.registry.Unsubscribe(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return h.page(c, fiber.StatusBadRequest,
				"Something went wrong",
				"This unsubscribe link is invalid. Please use the link from your email.")
		}
		return h.page(c, fiber.StatusInternalServerError,
			"Something went wrong",
			"We could not process your request right now. Please try again later.")
	}

	return h.page(c, fiber.StatusOK,
		"You have been unsubscribed",
		"You will no longer receive daily verses. You are welcome back any time.")
}

func (h *UnsubscribeHandler) page(c *fiber.Ctx, status int, title, detail string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).SendString(fmt.Sprintf(unsubscribePage, title, title, detail))
}
