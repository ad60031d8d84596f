package repository

import (
	"time"

	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

// SubscriberModel is the persistence model for the subscribers table.
// Email and phone are nullable so the partial unique indexes only apply
// to rows that actually carry the address.
type SubscriberModel struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	Email        *string `gorm:"type:varchar(255)"`
	Phone        *string `gorm:"type:varchar(20)"`
	Name         string  `gorm:"type:varchar(255);not null"`
	SendEmail    bool    `gorm:"not null;default:true"`
	SendWhatsApp bool    `gorm:"column:send_whatsapp;not null;default:false"`
	Subscribed   bool    `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SubscriberModel) TableName() string {
	return "subscribers"
}

// VerseModel is the persistence model for the verses audit table.
type VerseModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	SurahNumber      int     `gorm:"not null"`
	AyahNumber       int     `gorm:"not null"`
	TextArabic       string  `gorm:"type:text;not null"`
	TextEnglish      string  `gorm:"type:text;not null"`
	Commentary       *string `gorm:"type:text"`
	AudioURL         *string `gorm:"type:varchar(512)"`
	SurahNameEnglish string  `gorm:"type:varchar(255)"`
	SurahNameArabic  string  `gorm:"type:varchar(255)"`
	CreatedAt        time.Time
}

func (VerseModel) TableName() string {
	return "verses"
}

func optionalColumn(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func subscriberModelFromDomain(s *domain.Subscriber) *SubscriberModel {
	if s == nil {
		return nil
	}

	return &SubscriberModel{
		ID:           s.ID,
		Email:        optionalColumn(s.Email),
		Phone:        optionalColumn(s.Phone),
		Name:         s.Name,
		SendEmail:    s.SendEmail,
		SendWhatsApp: s.SendWhatsApp,
		Subscribed:   s.Subscribed,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func subscriberModelToDomain(m *SubscriberModel) *domain.Subscriber {
	if m == nil {
		return nil
	}

	return &domain.Subscriber{
		ID:           m.ID,
		Email:        optionalValue(m.Email),
		Phone:        optionalValue(m.Phone),
		Name:         m.Name,
		SendEmail:    m.SendEmail,
		SendWhatsApp: m.SendWhatsApp,
		Subscribed:   m.Subscribed,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func verseModelFromDomain(v *domain.Verse) *VerseModel {
	if v == nil {
		return nil
	}

	return &VerseModel{
		ID:               v.ID,
		SurahNumber:      v.SurahNumber,
		AyahNumber:       v.AyahNumber,
		TextArabic:       v.TextArabic,
		TextEnglish:      v.TextEnglish,
		Commentary:       optionalColumn(v.Commentary),
		AudioURL:         optionalColumn(v.AudioURL),
		SurahNameEnglish: v.SurahNameEnglish,
		SurahNameArabic:  v.SurahNameArabic,
		CreatedAt:        v.CreatedAt,
	}
}

func verseModelToDomain(m *VerseModel) *domain.Verse {
	if m == nil {
		return nil
	}

	return &domain.Verse{
		ID:               m.ID,
		SurahNumber:      m.SurahNumber,
		AyahNumber:       m.AyahNumber,
		TextArabic:       m.TextArabic,
		TextEnglish:      m.TextEnglish,
		Commentary:       optionalValue(m.Commentary),
		AudioURL:         optionalValue(m.AudioURL),
		SurahNameEnglish: m.SurahNameEnglish,
		SurahNameArabic:  m.SurahNameArabic,
		CreatedAt:        m.CreatedAt,
	}
}
