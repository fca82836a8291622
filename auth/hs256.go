package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-vss/core"
	"github.com/google/uuid"
)

type HS256TokenSourceConfig struct {
	Secret   string
	Subject  string
	Issuer   string
	Audience string
	KeyID    string
	TokenTTL time.Duration
	Now      func() time.Time
}

// HS256TokenSource mints short-lived JWTs whose subject names the store the
// bearer may access. It suits servers that share the signing secret.
type HS256TokenSource struct {
	config HS256TokenSourceConfig
}

func NewHS256TokenSource(cfg HS256TokenSourceConfig) *HS256TokenSource {
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 15 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &HS256TokenSource{
		config: HS256TokenSourceConfig{
			Secret:   strings.TrimSpace(cfg.Secret),
			Subject:  strings.TrimSpace(cfg.Subject),
			Issuer:   strings.TrimSpace(cfg.Issuer),
			Audience: strings.TrimSpace(cfg.Audience),
			KeyID:    strings.TrimSpace(cfg.KeyID),
			TokenTTL: tokenTTL,
			Now:      now,
		},
	}
}

func (s *HS256TokenSource) Token(context.Context) (Token, error) {
	if s.config.Secret == "" {
		return Token{}, core.NewError("auth: jwt signing secret is required", core.ErrorAuth, nil)
	}
	if s.config.Subject == "" {
		return Token{}, core.NewError("auth: jwt subject is required", core.ErrorAuth, nil)
	}

	now := s.config.Now().UTC()
	expiresAt := now.Add(s.config.TokenTTL)
	claims := jwt.MapClaims{
		"sub": s.config.Subject,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.NewString(),
	}
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}
	if s.config.Audience != "" {
		claims["aud"] = s.config.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return Token{}, core.WrapError(err, core.ErrorAuth, "auth: sign jwt", nil)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

type HS256VerifierConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

// HS256Verifier validates tokens minted by HS256TokenSource and reports
// their subject.
type HS256Verifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

func NewHS256Verifier(cfg HS256VerifierConfig) *HS256Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &HS256Verifier{
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		opts:   opts,
	}
}

func (v *HS256Verifier) Subject(tokenString string) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", core.NewError("auth: jwt verification secret is required", core.ErrorAuth, nil)
	}
	token, err := jwt.ParseWithClaims(
		strings.TrimSpace(tokenString),
		jwt.MapClaims{},
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		},
		v.opts...,
	)
	if err != nil || !token.Valid {
		if err == nil {
			err = fmt.Errorf("token is not valid")
		}
		return "", core.WrapError(err, core.ErrorAuth, "auth: invalid bearer token", nil)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", core.WrapError(err, core.ErrorAuth, "auth: read token subject", nil)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", core.NewError("auth: bearer token has no subject", core.ErrorAuth, nil)
	}
	return subject, nil
}
