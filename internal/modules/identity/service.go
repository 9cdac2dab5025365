// README: Identity service: OTP login for riders and drivers, and token refresh.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"londa/internal/infra"
	"londa/internal/logging"
	"londa/internal/types"
)

// CodeSender delivers an OTP code to a phone.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSender is the development sender: it records that a code went out, never the code.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, phone, _ string) error {
	slog.InfoContext(ctx, "OTP issued", "phone", logging.MaskPhone(phone))
	return nil
}

// TokenVerifier checks a possibly expired ID token presented for refresh.
type TokenVerifier interface {
	VerifyExpired(ctx context.Context, raw string) (*infra.FirebaseToken, error)
}

type Options struct {
	TTL       time.Duration
	AcceptAny bool
}

type Service struct {
	sessions SessionStore
	accounts Accounts
	profiles Profiles
	sender   CodeSender
	tokens   TokenVerifier
	opts     Options
}

func NewService(sessions SessionStore, accounts Accounts, profiles Profiles, sender CodeSender, tokens TokenVerifier, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{sessions: sessions, accounts: accounts, profiles: profiles, sender: sender, tokens: tokens, opts: opts}
}

func validPhone(phone string) bool {
	if !strings.HasPrefix(phone, "+") || len(phone) < 9 || len(phone) > 16 {
		return false
	}
	for _, c := range phone[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SendOTP opens a challenge for phone and returns its session token.
func (s *Service) SendOTP(ctx context.Context, phone, role string) (*Challenge, error) {
	if !validPhone(phone) {
		return nil, fmt.Errorf("%w: phone number must be in E.164 format", ErrBadRequest)
	}
	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	id, err := randomToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, id, Session{Phone: phone, Role: role, CodeHash: hash}, s.opts.TTL); err != nil {
		return nil, fmt.Errorf("store otp session: %w", err)
	}
	if err := s.sender.SendCode(ctx, phone, code); err != nil {
		_ = s.sessions.Delete(ctx, id)
		return nil, fmt.Errorf("send otp: %w", err)
	}
	return &Challenge{SessionInfo: id, ExpiresIn: s.opts.TTL}, nil
}

type VerifyCommand struct {
	Phone       string
	Code        string
	SessionInfo string
	Role        string
}

// VerifyOTP consumes the session, then finds or creates the identity user and
// the matching profile document and issues a custom token.
func (s *Service) VerifyOTP(ctx context.Context, cmd VerifyCommand) (*Login, error) {
	if !validPhone(cmd.Phone) || !validCode(cmd.Code) || cmd.SessionInfo == "" {
		return nil, fmt.Errorf("%w: phone, 6-digit otp and sessionInfo are required", ErrBadRequest)
	}
	sess, err := s.sessions.Get(ctx, cmd.SessionInfo)
	if err != nil {
		return nil, err
	}
	if sess.Phone != cmd.Phone || sess.Role != cmd.Role {
		return nil, ErrInvalidSession
	}
	if !s.opts.AcceptAny && bcrypt.CompareHashAndPassword(sess.CodeHash, []byte(cmd.Code)) != nil {
		n, ferr := s.sessions.Fail(ctx, cmd.SessionInfo)
		if ferr == nil && n >= maxAttempts {
			_ = s.sessions.Delete(ctx, cmd.SessionInfo)
		}
		return nil, ErrInvalidCode
	}
	if err := s.sessions.Delete(ctx, cmd.SessionInfo); err != nil {
		return nil, fmt.Errorf("consume otp session: %w", err)
	}

	uid, err := s.accounts.UserByPhone(ctx, cmd.Phone)
	if errors.Is(err, ErrUserNotFound) {
		uid, err = s.accounts.CreateUser(ctx, cmd.Phone)
	}
	if err != nil {
		return nil, err
	}

	var (
		profile any
		role    = cmd.Role
	)
	if role == RoleDriver {
		profile, err = s.profiles.EnsureDriver(ctx, uid, cmd.Phone)
	} else {
		profile, err = s.profiles.EnsureRider(ctx, uid, cmd.Phone)
		if stored, rerr := s.profiles.RoleOf(ctx, uid); rerr == nil && stored != "" && stored != RoleDriver {
			role = stored
		}
	}
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, uid, role, profile)
}

// Refresh trades a possibly expired ID token for a new one. The role comes
// from stored profiles or the provider's claims, never from the presented token.
func (s *Service) Refresh(ctx context.Context, raw string) (*Login, error) {
	tok, err := s.tokens.VerifyExpired(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	uid := types.ID(tok.UID)
	claims, err := s.accounts.Claims(ctx, uid)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user not found, please re-authenticate", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	role, err := s.profiles.RoleOf(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "resolve role from profiles failed", "user_id", uid, "err", err)
		role = ""
	}
	if role == "" {
		role = RoleUser
		if v, ok := claims[ClaimUserType].(string); ok && v != "" {
			role = v
		}
	}

	profile, err := s.profiles.Profile(ctx, uid, role)
	if err != nil {
		slog.WarnContext(ctx, "load profile on refresh failed", "user_id", uid, "err", err)
		profile = nil
	}
	return s.issue(ctx, uid, role, profile)
}

func (s *Service) issue(ctx context.Context, uid types.ID, role string, profile any) (*Login, error) {
	if err := s.accounts.SetRole(ctx, uid, role); err != nil {
		slog.WarnContext(ctx, "set custom claims failed", "user_id", uid, "err", err)
	}
	token, err := s.accounts.CustomToken(ctx, uid, role)
	if err != nil {
		return nil, fmt.Errorf("issue custom token: %w", err)
	}
	slog.InfoContext(ctx, "token issued", "user_id", uid, "user_type", role)
	return &Login{AccessToken: token, UserID: uid, Role: role, Profile: profile}, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
