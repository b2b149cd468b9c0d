package security

import (
	"errors"
	"strconv"
	"time"

	"salesdesk/pkg/config"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

var Module = fx.Module("security", fx.Provide(NewTokenIssuer))

var ErrInvalidToken = errors.New("invalid token")

// devSecret only signs tokens outside production, config refuses to start
// a production build without AUTH_JWT_SECRET.
const devSecret = "salesdesk-development-secret"

type Claims struct {
	Role string `json:"role"`

	jwt.RegisteredClaims
}

// UserID returns the subject as a snowflake id.
func (c Claims) UserID() (snowflake.ID, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return snowflake.ID(id), nil
}

type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = devSecret
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: cfg.Auth.Issuer,
		ttl:    cfg.Auth.TokenTTL,
		now:    time.Now,
	}
}

func (j *TokenIssuer) Sign(userID snowflake.ID, role string) (token string, expiresAt time.Time, err error) {
	now := j.now().UTC()
	expiresAt = now.Add(j.ttl)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expiresAt, nil
}

func (j *TokenIssuer) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer), jwt.WithTimeFunc(j.now))
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return *c, nil
}
