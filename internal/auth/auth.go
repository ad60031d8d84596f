package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	kindAccess  = "access"
	kindRefresh = "refresh"

	issuer = "verse-dispatch"
)

// ErrUnauthorized marks failed credential or token checks. Callers map it
// to a 401 without leaking which part of the check failed.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the JWT payload for admin tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Authenticator issues and verifies admin tokens. There is a single
// administrative identity configured from the environment; subscribers
// themselves never authenticate.
type Authenticator struct {
	adminEmail   string
	passwordHash []byte
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewAuthenticator(adminEmail, passwordHash, secret string, logger *zap.Logger) (*Authenticator, error) {
	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))
	if adminEmail == "" {
		return nil, fmt.Errorf("admin email is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, fmt.Errorf("admin password hash is required")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Authenticator{
		adminEmail:   adminEmail,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		accessTTL:    defaultAccessTTL,
		refreshTTL:   defaultRefreshTTL,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Login verifies the admin credential and issues a token pair.
func (a *Authenticator) Login(email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != a.adminEmail {
		return TokenPair{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return TokenPair{}, ErrUnauthorized
	}

	pair, err := a.issuePair()
	if err != nil {
		return TokenPair{}, err
	}

	a.logger.Info("admin login", zap.String("email", email))
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (a *Authenticator) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := a.verify(refreshToken, kindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.Subject != a.adminEmail {
		return TokenPair{}, ErrUnauthorized
	}

	return a.issuePair()
}

// VerifyAccess validates an access token and returns its claims.
func (a *Authenticator) VerifyAccess(token string) (*Claims, error) {
	return a.verify(token, kindAccess)
}

func (a *Authenticator) issuePair() (TokenPair, error) {
	access, err := a.sign(kindAccess, a.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.sign(kindRefresh, a.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(a.accessTTL.Seconds()),
	}, nil
}

func (a *Authenticator) sign(kind string, ttl time.Duration) (string, error) {
	now := a.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.adminEmail,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (a *Authenticator) verify(token, wantKind string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return a.now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Kind != wantKind {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
