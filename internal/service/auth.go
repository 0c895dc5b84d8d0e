package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_tracker/internal/events"
	"github.com/Skotchmaster/skincare_tracker/internal/hash"
	"github.com/Skotchmaster/skincare_tracker/internal/logging"
	"github.com/Skotchmaster/skincare_tracker/internal/models"
	"github.com/Skotchmaster/skincare_tracker/internal/repo"
	"github.com/Skotchmaster/skincare_tracker/internal/tokens"
)

const (
	cleanupTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUserWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
}

type RefreshStore interface {
	StoreRefresh(ctx context.Context, userID, jti string, expiresAt time.Time, meta models.ClientMeta) error
	FindValidRefresh(ctx context.Context, jti string) (*models.RefreshToken, error)
	RevokeRefresh(ctx context.Context, jti string) error
	RevokeAllRefreshForUser(ctx context.Context, userID string) (int64, error)
	CleanupRefresh(ctx context.Context, userID string) (int64, error)
	RotateRefresh(ctx context.Context, oldJTI, userID, newJTI string, expiresAt time.Time, meta models.ClientMeta) error
}

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, hash, password string) bool
	DummyHash() string
}

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type AuthService struct {
	Users         UserStore
	Tokens        RefreshStore
	Hasher        PasswordHasher
	Events        Publisher
	AccessSecret  []byte
	RefreshSecret []byte

	bg sync.WaitGroup
}

type AuthResult struct {
	User             models.PublicUser
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Wait blocks until background work started by the service has finished.
func (s *AuthService) Wait() { s.bg.Wait() }

func (s *AuthService) Signup(ctx context.Context, meta models.ClientMeta, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")
	email = NormalizeEmail(email)

	existing, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot look up user", "error", err)
		return nil, serverError(err)
	}
	if existing != nil {
		l.Warn("signup_failed", "status", 409, "reason", "email_exists")
		return nil, ErrEmailExists
	}

	pwHash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			l.Warn("signup_failed", "status", 400, "reason", "password_too_long")
			return nil, &Error{Code: CodeValidation, Err: err}
		}
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, serverError(err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := s.Users.CreateUserWithProfile(ctx, user, &models.Profile{}); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("signup_failed", "status", 409, "reason", "email_exists", "race", true)
			return nil, ErrEmailExists
		}
		l.Error("signup_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, serverError(err)
	}

	res, err := s.issuePair(ctx, user, meta)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, serverError(err)
	}

	s.publish(ctx, events.AuthEvent{Type: events.TypeSignedUp, UserID: user.ID, IP: meta.IP})
	l.Info("signup_success", "user_id", user.ID)
	return res, nil
}

// Login checks the password against a placeholder hash when the email is
// unknown, so both failure paths cost one hash verification.
func (s *AuthService) Login(ctx context.Context, meta models.ClientMeta, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	email = NormalizeEmail(email)

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot look up user", "error", err)
		return nil, serverError(err)
	}

	stored := s.Hasher.DummyHash()
	if user != nil {
		stored = user.PasswordHash
	}
	matched := s.Hasher.Verify(ctx, stored, password)
	if user == nil || !matched {
		l.Warn("login_failed", "status", 401, "reason", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(ctx, user, meta)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, serverError(err)
	}

	s.cleanupAsync(ctx, user.ID)
	s.publish(ctx, events.AuthEvent{Type: events.TypeLoggedIn, UserID: user.ID, IP: meta.IP})
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Refresh redeems a refresh token for a new pair. A token can be redeemed
// once; any later attempt revokes every session of the token's owner.
func (s *AuthService) Refresh(ctx context.Context, meta models.ClientMeta, raw string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	if raw == "" {
		return nil, ErrMissingRefreshToken
	}

	claims := tokens.VerifyRefreshToken(raw, s.RefreshSecret)
	if claims == nil {
		l.Warn("refresh_failed", "status", 401, "reason", "token_not_verified")
		return nil, ErrInvalidToken
	}

	stored, err := s.Tokens.FindValidRefresh(ctx, claims.ID)
	if err != nil {
		l.Error("refresh_error", "status", 500, "reason", "cannot look up refresh token", "error", err)
		return nil, serverError(err)
	}
	if stored == nil {
		s.containReplay(ctx, l, meta, "token_not_live", claims.Subject)
		return nil, ErrInvalidToken
	}
	if stored.UserID != claims.Subject {
		s.containReplay(ctx, l, meta, "owner_mismatch", claims.Subject, stored.UserID)
		return nil, ErrInvalidToken
	}

	user, err := s.Users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "owner_missing", "user_id", stored.UserID)
			if err := s.Tokens.RevokeRefresh(context.WithoutCancel(ctx), claims.ID); err != nil {
				l.Error("refresh_error", "reason", "cannot revoke orphan token", "error", err)
			}
			return nil, ErrInvalidToken
		}
		l.Error("refresh_error", "status", 500, "reason", "cannot load user", "error", err)
		return nil, serverError(err)
	}

	access, err := tokens.IssueAccessToken(user.ID, s.AccessSecret)
	if err != nil {
		l.Error("refresh_error", "status", 500, "reason", "cannot create token", "error", err)
		return nil, serverError(err)
	}
	next, err := tokens.IssueRefreshToken(user.ID, s.RefreshSecret)
	if err != nil {
		l.Error("refresh_error", "status", 500, "reason", "cannot create token", "error", err)
		return nil, serverError(err)
	}

	if err := s.Tokens.RotateRefresh(ctx, claims.ID, user.ID, next.JTI, next.ExpiresAt, meta); err != nil {
		if errors.Is(err, repo.ErrTokenNotLive) {
			// Another redemption of the same token committed first.
			s.containReplay(ctx, l, meta, "concurrent_redemption", claims.Subject)
			return nil, ErrInvalidToken
		}
		l.Error("refresh_error", "status", 500, "reason", "cannot rotate refresh token", "error", err)
		return nil, serverError(err)
	}

	l.Info("refresh_success", "user_id", user.ID)
	return &AuthResult{
		User:             user.Public(),
		AccessToken:      access,
		RefreshToken:     next.Token,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// Logout revokes the given refresh token if it verifies. It never fails:
// the client drops its copy either way.
func (s *AuthService) Logout(ctx context.Context, raw string) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	if raw == "" {
		l.Info("logout_without_token")
		return
	}

	claims := tokens.VerifyRefreshToken(raw, s.RefreshSecret)
	if claims == nil {
		l.Warn("logout_token_not_verified")
		return
	}

	if err := s.Tokens.RevokeRefresh(ctx, claims.ID); err != nil {
		l.Error("logout_error", "reason", "cannot revoke refresh token", "error", err)
		return
	}

	s.publish(ctx, events.AuthEvent{Type: events.TypeLoggedOut, UserID: claims.Subject})
	l.Info("logout_success", "user_id", claims.Subject)
}

// Authenticate resolves a bearer access token to its user id.
func (s *AuthService) Authenticate(accessToken string) (string, error) {
	claims := tokens.VerifyAccessToken(accessToken, s.AccessSecret)
	if claims == nil {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User, meta models.ClientMeta) (*AuthResult, error) {
	access, err := tokens.IssueAccessToken(user.ID, s.AccessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := tokens.IssueRefreshToken(user.ID, s.RefreshSecret)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.StoreRefresh(ctx, user.ID, refresh.JTI, refresh.ExpiresAt, meta); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:             user.Public(),
		AccessToken:      access,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// containReplay revokes every refresh token of the given users. It runs
// detached from ctx so a client hanging up cannot stop it halfway.
func (s *AuthService) containReplay(ctx context.Context, l *slog.Logger, meta models.ClientMeta, reason string, userIDs ...string) {
	ctx = context.WithoutCancel(ctx)
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		n, err := s.Tokens.RevokeAllRefreshForUser(ctx, id)
		if err != nil {
			l.Error("replay_containment_failed", "reason", reason, "user_id", id, "error", err)
			continue
		}
		l.Warn("refresh_replay_detected", "status", 401, "reason", reason, "user_id", id, "revoked", n)
		s.publish(ctx, events.AuthEvent{
			Type:          events.TypeReplayDetected,
			UserID:        id,
			IP:            meta.IP,
			RevokedTokens: n,
		})
	}
}

func (s *AuthService) cleanupAsync(ctx context.Context, userID string) {
	l := logging.FromContext(ctx).With("svc", "auth.cleanup", "user_id", userID)
	bgCtx := context.WithoutCancel(ctx)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		cctx, cancel := context.WithTimeout(bgCtx, cleanupTimeout)
		defer cancel()

		n, err := s.Tokens.CleanupRefresh(cctx, userID)
		if err != nil {
			l.Warn("cleanup_failed", "error", err)
			return
		}
		if n > 0 {
			l.Debug("cleanup_done", "deleted", n)
		}
	}()
}

func (s *AuthService) publish(ctx context.Context, event events.AuthEvent) {
	if s.Events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.Events.PublishEvent(pctx, event.UserID, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", event.Type, "error", err)
	}
}
