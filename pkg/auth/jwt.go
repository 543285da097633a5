package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

// Claims are the fields the portal reads from the upstream bearer token.
// The API issues role and ids under several names depending on version.
type Claims struct {
	UserID    string `json:"userId,omitempty"`
	NameID    string `json:"nameid,omitempty"`
	Role      string `json:"role,omitempty"`
	RoleName  string `json:"roleName,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	Name      string `json:"unique_name,omitempty"`
	StudentID string `json:"studentId,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the best available user id.
func (c *Claims) AccountID() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.NameID != "":
		return c.NameID
	default:
		return c.RegisteredClaims.Subject
	}
}

func (c *Claims) RoleValue() string {
	if c.Role != "" {
		return c.Role
	}
	return c.RoleName
}

func (c *Claims) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Name
}

// Parser reads claims. With an empty secret the signature is not checked:
// the upstream API stays the authority and rejects forged tokens itself.
type Parser struct {
	secret []byte
	now    func() time.Time
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret), now: time.Now}
}

func (p *Parser) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrInvalidFormat
	}

	claims := &Claims{}
	if len(p.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		if claims.ExpiresAt != nil && !p.now().Before(claims.ExpiresAt.Time) {
			return nil, ErrExpiredToken
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrInvalidFormat
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), nil
	}
	return header, nil
}
