// Package video mints the host/client token pair for online sessions. The
// tokens are opaque to the scheduling core; they are stored on the
// appointment and handed to the meeting frontend as-is.
package video

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Claims identify a participant of one meeting room.
type Claims struct {
	Room  string `json:"room"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs meeting tokens with a shared secret. The room is keyed by
// appointment id; tokens open shortly before the session and outlive it by an
// hour.
type Issuer struct {
	secret string
	issuer string
}

func NewIssuer(secret, issuer string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("video: signing secret required")
	}
	if issuer == "" {
		issuer = "practice-management-api"
	}
	return &Issuer{secret: secret, issuer: issuer}, nil
}

// IssuePair mints a host token for the clinician and a guest token for the
// client, both scoped to the appointment's room and window.
func (i *Issuer) IssuePair(appointmentID, clientName, clientEmail string, start, end time.Time) (string, string, error) {
	host, err := i.sign(appointmentID, RoleHost, "", "", start, end)
	if err != nil {
		return "", "", err
	}
	guest, err := i.sign(appointmentID, RoleGuest, clientName, clientEmail, start, end)
	if err != nil {
		return "", "", err
	}
	return host, guest, nil
}

func (i *Issuer) sign(room, role, name, email string, start, end time.Time) (string, error) {
	c := Claims{
		Room:  room,
		Role:  role,
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			NotBefore: jwt.NewNumericDate(start.Add(-15 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(end.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(i.secret))
}

// Parse validates a meeting token. Used by tests and the meeting join
// endpoint of the frontend gateway.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("video: unexpected signing method")
		}
		return []byte(i.secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("video: invalid token")
	}
	return c, nil
}
