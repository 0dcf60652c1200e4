package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/abhisek/wordmine/internal/config"
)

// ErrNoIdentity means the request carried no usable student identity.
var ErrNoIdentity = errors.New("student identity required")

const studentKey = "student_id"

// IdentityResolver extracts the calling student's id from a request.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// HeaderIdentity trusts a header set by an upstream gateway.
type HeaderIdentity struct {
	Header string
}

func (h HeaderIdentity) Resolve(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(h.Header))
	if id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// JWTIdentity reads the subject of an HS256 bearer token.
type JWTIdentity struct {
	Secret []byte
}

func (j JWTIdentity) Resolve(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrNoIdentity
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrNoIdentity)
	}
	return sub, nil
}

// NewIdentityResolver builds the resolver for the configured auth mode.
func NewIdentityResolver(cfg config.AuthConfig) (IdentityResolver, error) {
	switch cfg.Mode {
	case config.AuthModeHeader, "":
		header := cfg.Header
		if header == "" {
			header = "X-Student-ID"
		}
		return HeaderIdentity{Header: header}, nil
	case config.AuthModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt auth needs a secret")
		}
		return JWTIdentity{Secret: []byte(cfg.JWTSecret)}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// requireStudent rejects requests without an identity and stores the
// student id on the context.
func requireStudent(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := resolver.Resolve(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, ErrNoIdentity.Error()).SetInternal(err)
			}
			c.Set(studentKey, id)
			return next(c)
		}
	}
}

func studentID(c echo.Context) string {
	id, _ := c.Get(studentKey).(string)
	return id
}
