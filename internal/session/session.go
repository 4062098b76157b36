// Package session keeps anonymous visitor sessions in Valkey. A visitor is
// identified by a random cookie; the stored payload remembers the
// visitor's most recent test attempt so the results page can be revisited.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the visitor cookie.
	CookieName = "prepify_visitor"

	// DefaultTTL is how long an idle visitor session is kept.
	DefaultTTL = 30 * 24 * time.Hour

	keyPrefix = "session:"

	// idLength is the byte length of the random session id (64 hex chars).
	idLength = 32
)

// Data is the session payload stored in Valkey.
type Data struct {
	ID              string     `json:"-"`
	VisitorID       uuid.UUID  `json:"visitor_id"`
	LatestAttemptID *uuid.UUID `json:"latest_attempt_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Store manages visitor sessions in Valkey.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store. secure marks the cookie Secure and
// should be set when the site is served over TLS.
func NewStore(client redis.Cmdable, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

// Create starts a new visitor session and sets its cookie on w.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter) (*Data, error) {
	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("session create: %w", err)
	}

	data := &Data{ID: id, VisitorID: uuid.New(), CreatedAt: time.Now().UTC()}
	if err := s.Save(ctx, data); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return data, nil
}

// Get loads the session named by the request cookie. It returns nil, nil
// when the request has no cookie or the session has expired.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+cookie.Value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	data.ID = cookie.Value
	return &data, nil
}

// Load returns the visitor's session, creating one when none exists.
func (s *Store) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Data, error) {
	data, err := s.Get(ctx, r)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	return s.Create(ctx, w)
}

// Save writes data back to Valkey and refreshes its TTL.
func (s *Store) Save(ctx context.Context, data *Data) error {
	if data.ID == "" {
		return errors.New("session save: missing id")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+data.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// RecordAttempt remembers attemptID as the visitor's latest attempt.
func (s *Store) RecordAttempt(ctx context.Context, data *Data, attemptID uuid.UUID) error {
	data.LatestAttemptID = &attemptID
	return s.Save(ctx, data)
}

// Destroy removes the session and expires its cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+cookie.Value).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return nil
}

func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
