package actortoken

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid подпись, алгоритм или формат токена некорректны
	ErrTokenInvalid = errors.New("actortoken: token is invalid")

	// ErrTokenExpired срок действия токена истёк
	ErrTokenExpired = errors.New("actortoken: token is expired")

	// ErrClaimsMismatch issuer/audience/роль не совпадают с ожидаемыми
	ErrClaimsMismatch = errors.New("actortoken: claims mismatch")
)

// Роли, которые выдаёт сервис аутентификации.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Claims проверенные утверждения об акторе.
// ProviderID заполнен только для роли provider.
type Claims struct {
	UserID     int64
	Role       string
	ProviderID int64
	ExpiresAt  time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	ProviderID int64  `json:"provider_id,omitempty"`
}

// Config параметры подписи и проверки.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// Codec выпускает и проверяет HS256 токены актора.
type Codec struct {
	cfg Config
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("actortoken: secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("actortoken: issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg}, nil
}

// Issue подписывает токен для актора.
func (c *Codec) Issue(userID int64, role string, providerID int64) (string, error) {
	if !validRole(role) {
		return "", fmt.Errorf("%w: unknown role %q", ErrClaimsMismatch, role)
	}
	now := c.cfg.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TTL)),
		},
		Role:       role,
		ProviderID: providerID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
}

// Verify проверяет подпись, срок, issuer и audience и возвращает claims.
func (c *Codec) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenInvalid
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.cfg.Now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	userID, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: subject must be a positive id", ErrClaimsMismatch)
	}
	if !validRole(parsed.Role) {
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrClaimsMismatch, parsed.Role)
	}
	if parsed.Role == RoleProvider && parsed.ProviderID <= 0 {
		return Claims{}, fmt.Errorf("%w: provider token without provider_id", ErrClaimsMismatch)
	}

	return Claims{
		UserID:     userID,
		Role:       parsed.Role,
		ProviderID: parsed.ProviderID,
		ExpiresAt:  parsed.ExpiresAt.Time.UTC(),
	}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrClaimsMismatch, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func validRole(role string) bool {
	return role == RoleClient || role == RoleProvider || role == RoleAdmin
}
