// Package service implements the session/token security core: login with
// account lockout, single-use refresh token rotation with reuse detection,
// and idempotent logout. The service orchestrates the session, blacklist,
// and user stores; no other component calls across those boundaries.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/audit"
	auditdomain "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/audit/domain"
	blacklistdomain "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/blacklist/domain"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/lockout"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/security"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/sentinel"
	sessiondomain "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/session/domain"
	userdomain "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/domain"
)

// Sentinel errors for expected business outcomes; callers map them to
// transport responses. Infrastructure failures are returned wrapped instead.
var (
	// ErrInvalidCredentials is returned for a wrong password or unknown
	// user. Deliberately indistinguishable between the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the lockout window is in effect,
	// even when the presented credentials are correct.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrInvalidToken mirrors security.ErrInvalidToken for callers of this
	// package.
	ErrInvalidToken = security.ErrInvalidToken
	// ErrTokenBlacklisted is returned when the refresh token id was
	// explicitly revoked; the bearer must re-authenticate.
	ErrTokenBlacklisted = errors.New("token has been revoked")
	// ErrTokenReuseDetected is returned when an already-consumed refresh
	// token is presented again: likely token theft. The bound session is
	// forcibly deactivated.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)

// RequestContext carries transport-level request attributes. Opaque to the
// core beyond storage on the session for later display and audit.
type RequestContext struct {
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
}

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           string
	SessionID        string
}

// UserRepo is the minimal user repository needed by the auth service.
// Lockout-field mutations go through the lockout policy, not here.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	FindByRefreshJTI(ctx context.Context, jti string) (*sessiondomain.Session, error)
	Rebind(ctx context.Context, sessionID, oldJTI, newJTI, newHash string, at time.Time) (bool, error)
	Deactivate(ctx context.Context, id string, reason sessiondomain.DeactivateReason) error
	ListActive(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	DeactivateAllByUser(ctx context.Context, userID string, reason sessiondomain.DeactivateReason) error
	DeactivateAllExcept(ctx context.Context, userID, keepSessionID string, reason sessiondomain.DeactivateReason) error
}

// BlacklistRepo is the minimal blacklist repository needed by the auth
// service.
type BlacklistRepo interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, e *blacklistdomain.Entry) error
}

// AuthService implements login, refresh rotation, and logout.
type AuthService struct {
	users     UserRepo
	sessions  SessionRepo
	blacklist BlacklistRepo
	reuse     sentinel.Sentinel
	hasher    *security.Hasher
	tokens    *security.TokenIssuer
	lockout   *lockout.Policy
	auditor   audit.AuditLogger
	metrics   *Metrics
	tracer    trace.Tracer
	nowF      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor and metrics may be nil.
func NewAuthService(
	users UserRepo,
	sessions SessionRepo,
	blacklist BlacklistRepo,
	reuse sentinel.Sentinel,
	hasher *security.Hasher,
	tokens *security.TokenIssuer,
	lockoutPolicy *lockout.Policy,
	auditor audit.AuditLogger,
	metrics *Metrics,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		blacklist: blacklist,
		reuse:     reuse,
		hasher:    hasher,
		tokens:    tokens,
		lockout:   lockoutPolicy,
		auditor:   auditor,
		metrics:   metrics,
		tracer:    otel.Tracer("authcore/auth"),
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates with email/password, creates a session bound to the
// new refresh token, and returns the pair. A locked account fails with
// ErrAccountLocked even on correct credentials; failures never reveal
// whether the user exists.
func (s *AuthService) Login(ctx context.Context, email, password string, rctx RequestContext) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		s.metrics.recordLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("login: lookup user: %w", err)
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		audit.EmitAsync(s.auditor, "", "auth.login_failure", "session", rctx.IPAddress, auditdomain.RiskInfo, "unknown or inactive user")
		s.metrics.recordLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if s.lockout.IsLocked(user) {
		span.SetAttributes(attribute.String("outcome", "locked"))
		audit.EmitAsync(s.auditor, user.ID, "auth.account_locked", "user", rctx.IPAddress, auditdomain.RiskWarn, "login rejected during lockout window")
		s.metrics.recordLogin(ctx, "locked")
		return nil, ErrAccountLocked
	}

	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		locked, until, lerr := s.lockout.RecordFailure(ctx, user.ID)
		if lerr != nil {
			return nil, fmt.Errorf("login: record failure: %w", lerr)
		}
		if locked {
			s.metrics.recordLockout(ctx)
			audit.EmitAsync(s.auditor, user.ID, "auth.account_locked", "user", rctx.IPAddress, auditdomain.RiskWarn,
				fmt.Sprintf("locked until %s after repeated failures", until.Format(time.RFC3339)))
		} else {
			audit.EmitAsync(s.auditor, user.ID, "auth.login_failure", "session", rctx.IPAddress, auditdomain.RiskInfo, "wrong password")
		}
		s.metrics.recordLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if user.FailedAttemptCount > 0 {
		if err := s.lockout.RecordSuccess(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("login: reset failures: %w", err)
		}
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	sess := &sessiondomain.Session{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		CurrentRefreshJTI: pair.RefreshJTI,
		RefreshTokenHash:  security.HashRefreshToken(pair.RefreshToken),
		DeviceFingerprint: rctx.DeviceFingerprint,
		IPAddress:         rctx.IPAddress,
		UserAgent:         rctx.UserAgent,
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         pair.RefreshExpiresAt,
		IsActive:          true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("login: create session: %w", err)
	}

	span.SetAttributes(attribute.String("outcome", "ok"))
	audit.EmitAsync(s.auditor, user.ID, "auth.login", "session", rctx.IPAddress, auditdomain.RiskInfo, "session "+sess.ID)
	s.metrics.recordLogin(ctx, "ok")
	return &AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		UserID:           user.ID,
		SessionID:        sess.ID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair, revoking the old
// token id. The old id's blacklist write is durably recorded before the new
// pair is returned, so a crash mid-rotation can only leave the old token
// still rotatable, never both tokens live.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.recordRotation(ctx, "invalid")
		return nil, ErrInvalidToken
	}
	jti := claims.ID
	userID := claims.Subject
	expiry := claims.ExpiresAt.Time

	revoked, err := s.blacklist.IsRevoked(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("refresh: blacklist check: %w", err)
	}
	if revoked {
		span.SetAttributes(attribute.String("outcome", "blacklisted"))
		audit.EmitAsync(s.auditor, userID, "auth.refresh_rejected", "token", "", auditdomain.RiskWarn, "blacklisted token "+jti)
		s.metrics.recordRotation(ctx, "blacklisted")
		return nil, ErrTokenBlacklisted
	}

	// First-line anomaly check: an existing marker means this jti was
	// already consumed and the durable blacklist write may not be visible
	// yet. Fail open on sentinel errors, fail closed on a blacklist hit.
	alreadySeen, err := s.reuse.MarkConsumed(ctx, jti, userID)
	if err != nil {
		log.Printf("auth: reuse sentinel unavailable, continuing: %v", err)
		alreadySeen = false
	}
	if alreadySeen {
		return nil, s.handleReuse(ctx, span, jti, userID, expiry)
	}

	sess, err := s.sessions.FindByRefreshJTI(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("refresh: find session: %w", err)
	}
	if sess != nil {
		if !sess.IsActive {
			// The chain was already torn down (reuse, logout elsewhere,
			// expiry sweep). Revoke this id too and reject.
			s.revokeTokenID(ctx, jti, userID, teardownReason(sess.DeactivatedReason), expiry)
			s.metrics.recordRotation(ctx, "blacklisted")
			return nil, ErrTokenBlacklisted
		}
		if sess.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
			s.metrics.recordRotation(ctx, "invalid")
			return nil, ErrInvalidToken
		}
	}

	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, err
	}

	// Durable revocation of the consumed id must land before the new pair
	// is handed out.
	if err := s.blacklist.Revoke(ctx, &blacklistdomain.Entry{
		TokenID:         jti,
		UserID:          userID,
		Kind:            string(security.KindRefresh),
		Reason:          blacklistdomain.ReasonRotation,
		RevokedAt:       s.nowF(),
		NaturalExpiryAt: expiry,
	}); err != nil {
		return nil, fmt.Errorf("refresh: revoke consumed token: %w", err)
	}

	sessionID := ""
	if sess != nil {
		won, err := s.sessions.Rebind(ctx, sess.ID, jti, pair.RefreshJTI, security.HashRefreshToken(pair.RefreshToken), s.nowF())
		if err != nil {
			return nil, fmt.Errorf("refresh: rebind session: %w", err)
		}
		if !won {
			// A concurrent rotation consumed this jti first. Discard the
			// pair we just minted and report reuse: that is the correct
			// security signal for the losing caller.
			s.revokeTokenID(ctx, pair.RefreshJTI, userID, blacklistdomain.ReasonRotation, pair.RefreshExpiresAt)
			span.SetAttributes(attribute.String("outcome", "reuse"))
			audit.EmitAsync(s.auditor, userID, "auth.reuse_detected", "token", "", auditdomain.RiskHigh, "lost rotation race for token "+jti)
			s.metrics.recordReuse(ctx)
			return nil, ErrTokenReuseDetected
		}
		sessionID = sess.ID
	}

	span.SetAttributes(attribute.String("outcome", "ok"))
	audit.EmitAsync(s.auditor, userID, "auth.refresh", "token", "", auditdomain.RiskInfo, "rotated "+jti)
	s.metrics.recordRotation(ctx, "ok")
	return &AuthResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		UserID:           userID,
		SessionID:        sessionID,
	}, nil
}

// handleReuse tears down the chain for a replayed refresh token: the id is
// durably revoked (escalating the reason if already present) and the bound
// session is terminally deactivated.
func (s *AuthService) handleReuse(ctx context.Context, span trace.Span, jti, userID string, expiry time.Time) error {
	s.revokeTokenID(ctx, jti, userID, blacklistdomain.ReasonReuseDetected, expiry)
	sess, err := s.sessions.FindByRefreshJTI(ctx, jti)
	if err == nil && sess != nil {
		if derr := s.sessions.Deactivate(ctx, sess.ID, sessiondomain.ReasonReuseDetected); derr != nil {
			log.Printf("auth: deactivate session %s after reuse: %v", sess.ID, derr)
		}
	}
	span.SetAttributes(attribute.String("outcome", "reuse"))
	audit.EmitAsync(s.auditor, userID, "auth.reuse_detected", "token", "", auditdomain.RiskHigh, "replayed token "+jti)
	s.metrics.recordReuse(ctx)
	return ErrTokenReuseDetected
}

// teardownReason maps a session's deactivation reason onto the blacklist
// reason used when revoking a token still pointing at that session.
func teardownReason(r sessiondomain.DeactivateReason) blacklistdomain.RevokeReason {
	switch r {
	case sessiondomain.ReasonReuseDetected:
		return blacklistdomain.ReasonReuseDetected
	case sessiondomain.ReasonPasswordChange:
		return blacklistdomain.ReasonPasswordChange
	case sessiondomain.ReasonAdminAction:
		return blacklistdomain.ReasonAdminAction
	default:
		return blacklistdomain.ReasonLogout
	}
}

// revokeTokenID is a best-effort blacklist write used on the teardown paths
// where the primary outcome is already decided.
func (s *AuthService) revokeTokenID(ctx context.Context, jti, userID string, reason blacklistdomain.RevokeReason, expiry time.Time) {
	err := s.blacklist.Revoke(ctx, &blacklistdomain.Entry{
		TokenID:         jti,
		UserID:          userID,
		Kind:            string(security.KindRefresh),
		Reason:          reason,
		RevokedAt:       s.nowF(),
		NaturalExpiryAt: expiry,
	})
	if err != nil {
		log.Printf("auth: revoke token %s (%s): %v", jti, reason, err)
	}
}

// Logout revokes the presented refresh token and deactivates its session.
// Idempotent from the caller's perspective: an invalid or already-revoked
// token is acknowledged silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "auth.logout")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "noop"))
		return nil
	}
	if err := s.blacklist.Revoke(ctx, &blacklistdomain.Entry{
		TokenID:         claims.ID,
		UserID:          claims.Subject,
		Kind:            string(security.KindRefresh),
		Reason:          blacklistdomain.ReasonLogout,
		RevokedAt:       s.nowF(),
		NaturalExpiryAt: claims.ExpiresAt.Time,
	}); err != nil {
		return fmt.Errorf("logout: revoke token: %w", err)
	}
	sess, err := s.sessions.FindByRefreshJTI(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("logout: find session: %w", err)
	}
	if sess != nil {
		if err := s.sessions.Deactivate(ctx, sess.ID, sessiondomain.ReasonLogout); err != nil {
			return fmt.Errorf("logout: deactivate session: %w", err)
		}
	}
	span.SetAttributes(attribute.String("outcome", "ok"))
	audit.EmitAsync(s.auditor, claims.Subject, "auth.logout", "session", "", auditdomain.RiskInfo, "")
	return nil
}

// ListSessions returns the user's active sessions for display.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

// RevokeOtherSessions ends every active session for the user except
// keepSessionID, blacklisting each one's live refresh token id.
func (s *AuthService) RevokeOtherSessions(ctx context.Context, userID, keepSessionID string) error {
	active, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke others: list sessions: %w", err)
	}
	for _, sess := range active {
		if sess.ID == keepSessionID {
			continue
		}
		s.revokeTokenID(ctx, sess.CurrentRefreshJTI, userID, blacklistdomain.ReasonLogout, sess.ExpiresAt)
	}
	if err := s.sessions.DeactivateAllExcept(ctx, userID, keepSessionID, sessiondomain.ReasonLogout); err != nil {
		return fmt.Errorf("revoke others: deactivate: %w", err)
	}
	audit.EmitAsync(s.auditor, userID, "auth.sessions_revoked", "session", "", auditdomain.RiskInfo, "kept "+keepSessionID)
	return nil
}

// ChangePassword verifies the old password, stores the new hash, and tears
// down every session: their refresh token ids are blacklisted and the
// sessions deactivated, forcing re-login everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: lookup user: %w", err)
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: store hash: %w", err)
	}
	active, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: list sessions: %w", err)
	}
	for _, sess := range active {
		s.revokeTokenID(ctx, sess.CurrentRefreshJTI, userID, blacklistdomain.ReasonPasswordChange, sess.ExpiresAt)
	}
	if err := s.sessions.DeactivateAllByUser(ctx, userID, sessiondomain.ReasonPasswordChange); err != nil {
		return fmt.Errorf("change password: deactivate sessions: %w", err)
	}
	audit.EmitAsync(s.auditor, userID, "auth.password_change", "user", "", auditdomain.RiskWarn, "all sessions revoked")
	return nil
}
