package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/auth"
)

type AuthHandler struct {
	authenticator *auth.Authenticator
}

func NewAuthHandler(authenticator *auth.Authenticator) (*AuthHandler, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	return &AuthHandler{authenticator: authenticator}, nil
}

func RegisterAuthRoutes(router fiber.Router, authenticator *auth.Authenticator) error {
	h, err := NewAuthHandler(authenticator)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/auth/login", h.Login)
	v1.Post("/auth/refresh", h.Refresh)

	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.authenticator.Login(req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toTokenResponse(pair))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.authenticator.Refresh(req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toTokenResponse(pair))
}

func toTokenResponse(pair auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}
