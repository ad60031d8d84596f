package domain

import (
	"fmt"
	"strings"
	"time"
)

// Verse is one content item: the devotional text bundle delivered by a
// dispatch run. Immutable once produced; persisted as an audit record
// independent of the dispatch outcome.
type Verse struct {
	ID               string
	SurahNumber      int
	AyahNumber       int
	TextArabic       string
	TextEnglish      string
	Commentary       string
	AudioURL         string
	SurahNameEnglish string
	SurahNameArabic  string
	CreatedAt        time.Time
}

func (v *Verse) Validate() error {
	if v.SurahNumber < 1 {
		return fmt.Errorf("%w: surah number must be >= 1", ErrValidation)
	}
	if v.AyahNumber < 1 {
		return fmt.Errorf("%w: ayah number must be >= 1", ErrValidation)
	}
	if strings.TrimSpace(v.TextArabic) == "" {
		return fmt.Errorf("%w: arabic text is required", ErrValidation)
	}
	if strings.TrimSpace(v.TextEnglish) == "" {
		return fmt.Errorf("%w: english text is required", ErrValidation)
	}
	return nil
}

// SourceLabel renders the human-readable source reference, e.g.
// "Al-Fatihah (1:7)".
func (v *Verse) SourceLabel() string {
	name := strings.TrimSpace(v.SurahNameEnglish)
	if name == "" {
		return fmt.Sprintf("%d:%d", v.SurahNumber, v.AyahNumber)
	}
	return fmt.Sprintf("%s (%d:%d)", name, v.SurahNumber, v.AyahNumber)
}
