package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/auth"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
	"github.com/kursadbilgin/verse-dispatch/internal/service"
)

// SubscriberRegistry is the part of SubscriberService the handlers use.
type SubscriberRegistry interface {
	Create(ctx context.Context, subscriber *domain.Subscriber) (*domain.Subscriber, error)
	CreateOrMerge(ctx context.Context, subscriber *domain.Subscriber) (*domain.Subscriber, bool, error)
	Get(ctx context.Context, id string) (*domain.Subscriber, error)
	List(ctx context.Context) ([]domain.Subscriber, error)
	Update(ctx context.Context, id string, params service.UpdateSubscriberParams) (*domain.Subscriber, error)
	Delete(ctx context.Context, id string) error
	Unsubscribe(ctx context.Context, id string) error
}

type SubscriberHandler struct {
	registry SubscriberRegistry
	runner   DispatchRunner
}

func NewSubscriberHandler(registry SubscriberRegistry, runner DispatchRunner) (*SubscriberHandler, error) {
	if registry == nil {
		return nil, fmt.Errorf("subscriber registry is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("dispatch runner is required")
	}
	return &SubscriberHandler{registry: registry, runner: runner}, nil
}

func RegisterSubscriberRoutes(router fiber.Router, authenticator *auth.Authenticator, registry SubscriberRegistry, runner DispatchRunner) error {
	h, err := NewSubscriberHandler(registry, runner)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", auth.Middleware(authenticator))
	v1.Post("/subscribers", h.CreateSubscriber)
	v1.Post("/subscribers/notify", h.NotifySubscriber)
	v1.Get("/subscribers", h.ListSubscribers)
	v1.Get("/subscribers/:id", h.GetSubscriber)
	v1.Patch("/subscribers/:id", h.UpdateSubscriber)
	v1.Delete("/subscribers/:id", h.DeleteSubscriber)

	return nil
}

type subscriberRequest struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	SendEmail    *bool  `json:"sendEmail,omitempty"`
	SendWhatsApp *bool  `json:"sendWhatsapp,omitempty"`
}

type updateSubscriberRequest struct {
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Name         *string `json:"name,omitempty"`
	SendEmail    *bool   `json:"sendEmail,omitempty"`
	SendWhatsApp *bool   `json:"sendWhatsapp,omitempty"`
	Subscribed   *bool   `json:"subscribed,omitempty"`
}

type subscriberResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Name         string    `json:"name"`
	SendEmail    bool      `json:"sendEmail"`
	SendWhatsApp bool      `json:"sendWhatsapp"`
	Subscribed   bool      `json:"subscribed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type notifyResponse struct {
	Subscriber subscriberResponse `json:"subscriber"`
	Created    bool               `json:"created"`
	Report     reportResponse     `json:"report"`
}

type listSubscribersResponse struct {
	Data  []subscriberResponse `json:"data"`
	Total int                  `json:"total"`
}

// CreateSubscriber registers a new subscriber; a duplicate email or phone
// is a conflict, never a merge.
func (h *SubscriberHandler) CreateSubscriber(c *fiber.Ctx) error {
	var req subscriberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.registry.Create(c.Context(), requestToSubscriber(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSubscriberResponse(created))
}

// NotifySubscriber registers or merges a subscriber and immediately sends
// them the current verse over their eligible channels.
func (h *SubscriberHandler) NotifySubscriber(c *fiber.Ctx) error {
	var req subscriberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	subscriber, created, err := h.registry.CreateOrMerge(c.Context(), requestToSubscriber(req))
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.runner.RunForSubscriber(c.Context(), subscriber.ID)
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(notifyResponse{
		Subscriber: toSubscriberResponse(subscriber),
		Created:    created,
		Report:     toReportResponse(report),
	})
}

func (h *SubscriberHandler) GetSubscriber(c *fiber.Ctx) error {
	subscriber, err := h.registry.Get(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toSubscriberResponse(subscriber))
}

func (h *SubscriberHandler) ListSubscribers(c *fiber.Ctx) error {
	subscribers, err := h.registry.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	response := listSubscribersResponse{
		Data:  make([]subscriberResponse, 0, len(subscribers)),
		Total: len(subscribers),
	}
	for i := range subscribers {
		response.Data = append(response.Data, toSubscriberResponse(&subscribers[i]))
	}
	return c.JSON(response)
}

func (h *SubscriberHandler) UpdateSubscriber(c *fiber.Ctx) error {
	var req updateSubscriberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.registry.Update(c.Context(), c.Params("id"), service.UpdateSubscriberParams{
		Email:        req.Email,
		Phone:        req.Phone,
		Name:         req.Name,
		SendEmail:    req.SendEmail,
		SendWhatsApp: req.SendWhatsApp,
		Subscribed:   req.Subscribed,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toSubscriberResponse(updated))
}

func (h *SubscriberHandler) DeleteSubscriber(c *fiber.Ctx) error {
	if err := h.registry.Delete(c.Context(), c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func requestToSubscriber(req subscriberRequest) *domain.Subscriber {
	subscriber := &domain.Subscriber{
		Email: req.Email,
		Phone: req.Phone,
		Name:  req.Name,
	}
	if req.SendEmail != nil {
		subscriber.SendEmail = *req.SendEmail
	}
	if req.SendWhatsApp != nil {
		subscriber.SendWhatsApp = *req.SendWhatsApp
	}
	return subscriber
}

func toSubscriberResponse(s *domain.Subscriber) subscriberResponse {
	return subscriberResponse{
		ID:           s.ID,
		Email:        s.Email,
		Phone:        s.Phone,
		Name:         s.Name,
		SendEmail:    s.SendEmail,
		SendWhatsApp: s.SendWhatsApp,
		Subscribed:   s.Subscribed,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
