package content

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/verse-dispatch/internal/domain"
)

const defaultFetchTimeout = 10 * time.Second

// editions requested per verse: Arabic script, English translation,
// and a recitation for the optional audio reference.
const verseEditions = "quran-uthmani,en.sahih,ar.alafasy"

// Provider supplies one content item per dispatch run.
type Provider interface {
	Fetch(ctx context.Context) (*domain.Verse, error)
}

// metaResponse is the fixed schema contract for GET /meta. Anything that
// does not fit it is an upstream failure; no field sniffing.
type metaResponse struct {
	Data struct {
		Surahs struct {
			References []surahReference `json:"references"`
		} `json:"surahs"`
	} `json:"data"`
}

type surahReference struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	EnglishName   string `json:"englishName"`
	NumberOfAyahs int    `json:"numberOfAyahs"`
}

type editionsResponse struct {
	Data []ayahEdition `json:"data"`
}

type ayahEdition struct {
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
	Audio         string `json:"audio"`
	Edition       struct {
		Identifier string `json:"identifier"`
		Language   string `json:"language"`
		Format     string `json:"format"`
	} `json:"edition"`
	Surah struct {
		Number      int    `json:"number"`
		Name        string `json:"name"`
		EnglishName string `json:"englishName"`
	} `json:"surah"`
}

// QuranAPI fetches a random verse from an alquran.cloud compatible API.
type QuranAPI struct {
	client   *resty.Client
	baseURL  string
	randIntn func(n int) int
}

func NewQuranAPI(baseURL string) (*QuranAPI, error) {
	client := resty.New()
	client.SetTimeout(defaultFetchTimeout)
	client.SetRetryCount(0)

	return NewQuranAPIWithClient(baseURL, client)
}

func NewQuranAPIWithClient(baseURL string, client *resty.Client) (*QuranAPI, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("verse api base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid verse api base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &QuranAPI{
		client:   client,
		baseURL:  trimmed,
		randIntn: rand.Intn,
	}, nil
}

// Fetch picks a uniformly random surah and ayah and returns the verse
// bundle. Every failure wraps domain.ErrUpstream: no content, no dispatch.
func (q *QuranAPI) Fetch(ctx context.Context) (*domain.Verse, error) {
	references, err := q.fetchSurahReferences(ctx)
	if err != nil {
		return nil, err
	}

	ref := references[q.randIntn(len(references))]
	if ref.NumberOfAyahs < 1 {
		return nil, fmt.Errorf("%w: surah %d reports no ayahs", domain.ErrUpstream, ref.Number)
	}
	ayahNumber := q.randIntn(ref.NumberOfAyahs) + 1

	return q.fetchVerse(ctx, ref.Number, ayahNumber)
}

func (q *QuranAPI) fetchSurahReferences(ctx context.Context) ([]surahReference, error) {
	var meta metaResponse
	response, err := q.client.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(q.baseURL + "/meta")
	if err != nil {
		return nil, fmt.Errorf("%w: meta request failed: %v", domain.ErrUpstream, err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: meta returned status %d", domain.ErrUpstream, response.StatusCode())
	}
	if len(meta.Data.Surahs.References) == 0 {
		return nil, fmt.Errorf("%w: meta response has no surah references", domain.ErrUpstream)
	}
	return meta.Data.Surahs.References, nil
}

func (q *QuranAPI) fetchVerse(ctx context.Context, surahNumber, ayahNumber int) (*domain.Verse, error) {
	var editions editionsResponse
	endpoint := fmt.Sprintf("%s/ayah/%d:%d/editions/%s", q.baseURL, surahNumber, ayahNumber, verseEditions)

	response, err := q.client.R().
		SetContext(ctx).
		SetResult(&editions).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: ayah request failed: %v", domain.ErrUpstream, err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: ayah returned status %d", domain.ErrUpstream, response.StatusCode())
	}

	verse := &domain.Verse{
		SurahNumber: surahNumber,
		AyahNumber:  ayahNumber,
	}

	for _, item := range editions.Data {
		switch {
		case item.Edition.Language == "ar" && item.Edition.Format == "audio":
			verse.AudioURL = item.Audio
		case item.Edition.Language == "ar":
			verse.TextArabic = item.Text
			verse.SurahNameArabic = item.Surah.Name
			if item.NumberInSurah > 0 {
				verse.AyahNumber = item.NumberInSurah
			}
		case item.Edition.Language == "en":
			verse.TextEnglish = item.Text
			verse.SurahNameEnglish = item.Surah.EnglishName
		}
	}

	if err := verse.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ayah response missing editions: %v", domain.ErrUpstream, err)
	}
	return verse, nil
}
