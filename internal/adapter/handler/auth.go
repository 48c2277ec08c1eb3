package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

const DefaultUserHeader = "X-Remote-User"

// Claims is the bearer token payload. The submitting user is the subject,
// or the user claim for tokens minted by older front ends.
type Claims struct {
	User string `json:"user,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator resolves the submitting user of a request. With a JWT secret it
// requires a signed bearer token; otherwise it trusts a header set by the
// authenticating front end.
type Authenticator struct {
	userHeader string
	jwtSecret  []byte
}

func NewAuthenticator(userHeader, jwtSecret string) *Authenticator {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	a := &Authenticator{userHeader: userHeader}
	if jwtSecret != "" {
		a.jwtSecret = []byte(jwtSecret)
	}
	return a
}

func (a *Authenticator) Identify(r *http.Request) (string, error) {
	return a.identify(r.Header.Get("Authorization"), r.Header.Get(a.userHeader))
}

func (a *Authenticator) IdentifyMetadata(md metadata.MD) (string, error) {
	return a.identify(first(md.Get("authorization")), first(md.Get(strings.ToLower(a.userHeader))))
}

func (a *Authenticator) identify(authorization, remoteUser string) (string, error) {
	if a.jwtSecret == nil {
		if user := strings.TrimSpace(remoteUser); user != "" {
			return user, nil
		}
		return "", domain.ErrAuthenticationRequired
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrAuthenticationRequired
	}

	token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrAuthenticationRequired)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return "", domain.ErrAuthenticationRequired
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	if claims.User != "" {
		return claims.User, nil
	}
	return "", fmt.Errorf("%w: token names no user", domain.ErrAuthenticationRequired)
}

// GenerateToken signs an HS256 token naming user, valid for ttl.
func GenerateToken(secret, user string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: jwt secret is empty", domain.ErrConfiguration)
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
