package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/auth"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

const defaultRecentVerses = 20

// VerseStore is the read side of the verse audit log.
type VerseStore interface {
	GetByID(ctx context.Context, id string) (*domain.Verse, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Verse, error)
}

type VerseHandler struct {
	verses VerseStore
}

func NewVerseHandler(verses VerseStore) (*VerseHandler, error) {
	if verses == nil {
		return nil, fmt.Errorf("verse store is required")
	}
	return &VerseHandler{verses: verses}, nil
}

func RegisterVerseRoutes(router fiber.Router, authenticator *auth.Authenticator, verses VerseStore) error {
	h, err := NewVerseHandler(verses)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", auth.Middleware(authenticator))
	v1.Get("/verses", h.ListVerses)
	v1.Get("/verses/:id", h.GetVerse)

	return nil
}

type verseResponse struct {
	ID               string    `json:"id"`
	SurahNumber      int       `json:"surahNumber"`
	AyahNumber       int       `json:"ayahNumber"`
	SurahNameArabic  string    `json:"surahNameArabic,omitempty"`
	SurahNameEnglish string    `json:"surahNameEnglish"`
	TextArabic       string    `json:"textArabic"`
	TextEnglish      string    `json:"textEnglish"`
	Commentary       string    `json:"commentary,omitempty"`
	AudioURL         string    `json:"audioUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type listVersesResponse struct {
	Data  []verseResponse `json:"data"`
	Total int             `json:"total"`
}

// ListVerses returns the most recently dispatched verses, newest last.
func (h *VerseHandler) ListVerses(c *fiber.Ctx) error {
	limit := defaultRecentVerses
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	verses, err := h.verses.ListRecent(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	response := listVersesResponse{Data: make([]verseResponse, 0, len(verses)), Total: len(verses)}
	for i := range verses {
		response.Data = append(response.Data, toVerseResponse(&verses[i]))
	}
	return c.JSON(response)
}

func (h *VerseHandler) GetVerse(c *fiber.Ctx) error {
	verse, err := h.verses.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(toVerseResponse(verse))
}

func toVerseResponse(v *domain.Verse) verseResponse {
	return verseResponse{
		ID:               v.ID,
		SurahNumber:      v.SurahNumber,
		AyahNumber:       v.AyahNumber,
		SurahNameArabic:  v.SurahNameArabic,
		SurahNameEnglish: v.SurahNameEnglish,
		TextArabic:       v.TextArabic,
		TextEnglish:      v.TextEnglish,
		Commentary:       v.Commentary,
		AudioURL:         v.AudioURL,
		CreatedAt:        v.CreatedAt,
	}
}
