package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/verse-dispatch/internal/auth"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/queue"
)

// DispatchRunner is the part of DispatchService the handlers use.
type DispatchRunner interface {
	Run(ctx context.Context) (domain.Report, error)
	RunForSubscriber(ctx context.Context, subscriberID string) (domain.Report, error)
	RunForSubscriberChannel(ctx context.Context, subscriberID string, channel domain.Channel) (domain.Report, error)
	RunDirect(ctx context.Context, channel domain.Channel, address string) (domain.Report, error)
}

type DispatchHandler struct {
	runner    DispatchRunner
	publisher queue.Publisher
}

func NewDispatchHandler(runner DispatchRunner, publisher queue.Publisher) (*DispatchHandler, error) {
	if runner == nil {
		return nil, fmt.Errorf("dispatch runner is required")
	}
	return &DispatchHandler{runner: runner, publisher: publisher}, nil
}

func RegisterDispatchRoutes(router fiber.Router, authenticator *auth.Authenticator, runner DispatchRunner, publisher queue.Publisher) error {
	h, err := NewDispatchHandler(runner, publisher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", auth.Middleware(authenticator))
	v1.Post("/dispatch", h.RunDispatch)
	v1.Post("/dispatch/async", h.RunDispatchAsync)
	v1.Post("/sends/subscriber/:id", h.SendToSubscriber)
	v1.Post("/sends/email/:id", h.SendEmail)
	v1.Post("/sends/whatsapp/:id", h.SendWhatsApp)
	v1.Post("/sends/email", h.SendDirectEmail)
	v1.Post("/sends/whatsapp", h.SendDirectWhatsApp)

	return nil
}

type reportResponse struct {
	RunID     string            `json:"runId"`
	VerseID   string            `json:"verseId,omitempty"`
	Attempted int               `json:"attempted"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Outcomes  []outcomeResponse `json:"outcomes"`
}

type outcomeResponse struct {
	SubscriberID string                 `json:"subscriberId"`
	Channels     []string               `json:"channels,omitempty"`
	Success      bool                   `json:"success"`
	Skipped      bool                   `json:"skipped,omitempty"`
	Errors       []channelErrorResponse `json:"errors,omitempty"`
}

type channelErrorResponse struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

type asyncDispatchResponse struct {
	MessageID string `json:"messageId"`
	Queued    bool   `json:"queued"`
}

// RunDispatch executes a full dispatch run synchronously and returns the
// aggregated report.
func (h *DispatchHandler) RunDispatch(c *fiber.Ctx) error {
	report, err := h.runner.Run(c.Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toReportResponse(report))
}

// RunDispatchAsync enqueues a dispatch trigger for the worker.
func (h *DispatchHandler) RunDispatchAsync(c *fiber.Ctx) error {
	if h.publisher == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "async dispatch is not configured")
	}

	msg := queue.DispatchMessage{
		MessageID:   uuid.NewString(),
		Kind:        queue.DispatchAll,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.publisher.Publish(c.Context(), queue.TriggerQueue, msg); err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(asyncDispatchResponse{
		MessageID: msg.MessageID,
		Queued:    true,
	})
}

// SendToSubscriber delivers the current verse to one subscriber over all
// of their eligible channels.
func (h *DispatchHandler) SendToSubscriber(c *fiber.Ctx) error {
	report, err := h.runner.RunForSubscriber(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toReportResponse(report))
}

func (h *DispatchHandler) SendEmail(c *fiber.Ctx) error {
	return h.sendChannel(c, domain.ChannelEmail)
}

func (h *DispatchHandler) SendWhatsApp(c *fiber.Ctx) error {
	return h.sendChannel(c, domain.ChannelWhatsApp)
}

func (h *DispatchHandler) sendChannel(c *fiber.Ctx, channel domain.Channel) error {
	report, err := h.runner.RunForSubscriberChannel(c.Context(), c.Params("id"), channel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toReportResponse(report))
}

type directSendRequest struct {
	To string `json:"to"`
}

// SendDirectEmail delivers the current verse to a raw email address
// without registering it.
func (h *DispatchHandler) SendDirectEmail(c *fiber.Ctx) error {
	return h.sendDirect(c, domain.ChannelEmail)
}

// SendDirectWhatsApp delivers the current verse to a raw phone number
// without registering it.
func (h *DispatchHandler) SendDirectWhatsApp(c *fiber.Ctx) error {
	return h.sendDirect(c, domain.ChannelWhatsApp)
}

func (h *DispatchHandler) sendDirect(c *fiber.Ctx, channel domain.Channel) error {
	var req directSendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.runner.RunDirect(c.Context(), channel, req.To)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toReportResponse(report))
}

func toReportResponse(report domain.Report) reportResponse {
	response := reportResponse{
		RunID:     report.RunID,
		VerseID:   report.VerseID,
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
		Outcomes:  make([]outcomeResponse, 0, len(report.Outcomes)),
	}
	for _, outcome := range report.Outcomes {
		item := outcomeResponse{
			SubscriberID: outcome.SubscriberID,
			Success:      outcome.Success,
			Skipped:      outcome.Skipped,
		}
		for _, channel := range outcome.Channels {
			item.Channels = append(item.Channels, channel.String())
		}
		for _, channelErr := range outcome.Errors {
			item.Errors = append(item.Errors, channelErrorResponse{
				Channel: channelErr.Channel.String(),
				Error:   channelErr.Error,
			})
		}
		response.Outcomes = append(response.Outcomes, item)
	}
	return response
}
