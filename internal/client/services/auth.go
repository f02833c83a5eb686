// Package services contains application services for the story client.
// This file defines the authentication service: register/login against the
// backend, session persistence across restarts, and push-subscription
// opt-in/opt-out tied to the logged-in user.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/satriojati/storymap/internal/client/api"
	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/logging"
)

// AuthService owns the session lifecycle. It is also the token source for
// the API client and the network monitor, so construct it first and bind the
// API client afterwards with BindAPI.
type AuthService struct {
	meta metadata.Repository
	log  logging.Logger

	mu      sync.RWMutex
	api     *api.Client
	session *models.Session
}

func NewAuthService(meta metadata.Repository, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{meta: meta, log: log}
}

// BindAPI wires the API client once it exists. The client needs this service
// as its token source, so the two cannot be constructed in one step.
func (a *AuthService) BindAPI(c *api.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.api = c
}

// Token returns the current bearer token, or "" when logged out. It
// satisfies the token source contracts of the API client and the network
// monitor.
func (a *AuthService) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}

// User returns the logged-in user, or nil.
func (a *AuthService) User() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	u := a.session.User
	return &u
}

// IsLoggedIn reports whether a non-expired session is present.
func (a *AuthService) IsLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Valid() == nil
}

func (a *AuthService) client() *api.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.api
}

// LoadSession restores a persisted session at startup. An expired token is
// discarded so the user starts logged out instead of hitting 401s.
func (a *AuthService) LoadSession(ctx context.Context) error {
	tok, err := a.meta.Get(ctx, metadata.KeyToken)
	if err != nil {
		return fmt.Errorf("failed to load session token: %w", err)
	}
	if len(tok) == 0 {
		return nil
	}

	sess := &models.Session{Token: string(tok)}
	if raw, err := a.meta.Get(ctx, metadata.KeyUser); err == nil {
		_ = json.Unmarshal(raw, &sess.User)
	}

	if err := sess.Valid(); err != nil {
		a.log.Info(ctx, "discarding stale session", "err", err)
		return a.clearSession(ctx)
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	return nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	LoginResult struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Token  string `json:"token"`
	} `json:"loginResult"`
}

func validateCredentials(email, password string) []string {
	var problems []string
	if !strings.Contains(email, "@") {
		problems = append(problems, "A valid email address is required")
	}
	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters")
	}
	return problems
}

// Register creates a new account. Validation problems are reported before
// any request is made.
func (a *AuthService) Register(ctx context.Context, name, email, password string) error {
	problems := validateCredentials(email, password)
	if strings.TrimSpace(name) == "" {
		problems = append([]string{"Name must not be empty"}, problems...)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "\n"))
	}

	if err := a.client().PostJSON(ctx, "/register", registerRequest{Name: name, Email: email, Password: password}, false, nil); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	return nil
}

// Login authenticates and persists the session so it survives restarts.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if problems := validateCredentials(email, password); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "\n"))
	}

	var resp loginResponse
	if err := a.client().PostJSON(ctx, "/login", loginRequest{Email: email, Password: password}, false, &resp); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	sess := &models.Session{
		Token: resp.LoginResult.Token,
		User:  models.User{ID: resp.LoginResult.UserID, Name: resp.LoginResult.Name},
	}
	if err := a.persistSession(ctx, sess); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	return sess, nil
}

// Logout drops the session in memory and on disk. Missing persisted state is
// not an error.
func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	return a.clearSession(ctx)
}

func (a *AuthService) persistSession(ctx context.Context, sess *models.Session) error {
	if err := a.meta.Set(ctx, metadata.KeyToken, []byte(sess.Token)); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := a.meta.Set(ctx, metadata.KeyUser, raw); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	return nil
}

func (a *AuthService) clearSession(ctx context.Context) error {
	for _, key := range []string{metadata.KeyToken, metadata.KeyUser} {
		if err := a.meta.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}

type subscribeRequest struct {
	Endpoint string                  `json:"endpoint"`
	Keys     models.SubscriptionKeys `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// SubscribePush registers the device for push notifications and persists the
// subscription locally so the push worker can pick it up after a restart.
func (a *AuthService) SubscribePush(ctx context.Context, sub models.Subscription) error {
	if !a.IsLoggedIn() {
		return common.ErrUnauthorized
	}

	req := subscribeRequest{Endpoint: sub.Endpoint, Keys: sub.Keys}
	if err := a.client().PostJSON(ctx, "/notifications/subscribe", req, true, nil); err != nil {
		return fmt.Errorf("failed to subscribe to push notifications: %w", err)
	}

	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode subscription: %w", err)
	}
	if err := a.meta.Set(ctx, metadata.KeySubscription, raw); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}
	return nil
}

// UnsubscribePush cancels the push registration on the backend and locally.
// The local record is removed even when the backend call fails so a broken
// registration cannot get stuck.
func (a *AuthService) UnsubscribePush(ctx context.Context) error {
	raw, err := a.meta.Get(ctx, metadata.KeySubscription)
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var sub models.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	apiErr := a.client().DeleteJSON(ctx, "/notifications/subscribe", unsubscribeRequest{Endpoint: sub.Endpoint}, nil)

	if err := a.meta.Delete(ctx, metadata.KeySubscription); err != nil {
		return fmt.Errorf("failed to remove subscription: %w", err)
	}
	if apiErr != nil {
		return fmt.Errorf("failed to unsubscribe from push notifications: %w", apiErr)
	}
	return nil
}

// Subscription returns the persisted push subscription, or nil when the user
// has not opted in.
func (a *AuthService) Subscription(ctx context.Context) *models.Subscription {
	raw, err := a.meta.Get(ctx, metadata.KeySubscription)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var sub models.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil
	}
	return &sub
}
