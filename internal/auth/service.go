// Package auth composes the credential core: it gates every attempt
// through the lockout policy, derives and verifies keys against the
// Identity Directory, and drives session and challenge lifecycle. Every
// operation terminates in a defined Result; nothing is reported to the
// user that would reveal whether a username exists.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/avdeev/driveauth/internal/captcha"
	"github.com/avdeev/driveauth/internal/cryptox"
	"github.com/avdeev/driveauth/internal/directory"
	"github.com/avdeev/driveauth/internal/lockout"
	"github.com/avdeev/driveauth/internal/logging"
	"github.com/avdeev/driveauth/internal/session"
)

// Outcome classifies how an authentication operation ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeValidation
	OutcomeRejected
	OutcomeLocked
	OutcomeConflict
	OutcomeUnavailable
)

// Result is what the form boundary renders: a user-visible error or
// success message, the challenge for the next submission, and the
// session's failed-attempt count.
type Result struct {
	Outcome         Outcome
	Error           string
	Success         string
	CaptchaQuestion string
	LoginAttempts   int
}

// LoginInput is one transient credential attempt. The password is used
// for key derivation and discarded; it is never persisted or logged.
type LoginInput struct {
	Username string
	Password string
	Remember bool
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	CaptchaAnswer   string
}

// User-visible messages. Login failures share one generic message so the
// response never reveals whether the username or the password was wrong.
const (
	msgMissingCredentials = "Please provide both username and password"
	msgInvalidCredentials = "Invalid username or password"
	msgLoginFailure       = "An error occurred during login. Please try again."
	msgMissingFields      = "Please fill in all fields"
	msgBadUsername        = "Username must contain only letters, numbers, dashes, and underscores"
	msgPasswordMismatch   = "Passwords do not match"
	msgWeakPassword       = "Password is too weak. Use more than 10 characters for better security."
	msgBadCaptcha         = "Incorrect security check answer"
	msgRegistered         = "Account created successfully! You can now log in with your credentials."
	msgConflict           = "Username or email already exists. Please choose different credentials."
	msgRegisterRejected   = "Registration failed. Please try again."
	msgRegisterFailure    = "An error occurred during registration. Please try again."
)

// minPasswordLength is exclusive: a password must be longer than this.
const minPasswordLength = 10

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Service is the authentication orchestrator.
type Service struct {
	directory directory.Client
	sessions  *session.Manager
	logger    logging.Logger
}

func NewService(dir directory.Client, sessions *session.Manager, logger logging.Logger) *Service {
	return &Service{directory: dir, sessions: sessions, logger: logger}
}

// NewForm issues a fresh challenge for an auth form render.
func (s *Service) NewForm(ctx context.Context, sessID string) (*Result, error) {
	ch := captcha.New()
	sess, err := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		sn.CaptchaAnswer = ch.Answer
		sn.CaptchaSet = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Outcome:         OutcomeOK,
		CaptchaQuestion: ch.Question,
		LoginAttempts:   sess.Lockout.Attempts,
	}, nil
}

// Login runs one credential attempt for the session. The lockout gate is
// checked before any Directory traffic; a locked session is rejected
// without consulting the Directory at all.
func (s *Service) Login(ctx context.Context, sessID string, in LoginInput) (*Result, error) {
	now := time.Now()

	var (
		remaining time.Duration
		locked    bool
	)
	_, err := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		if d, l := sn.Lockout.Locked(now); l {
			remaining, locked = d, l
			return nil
		}
		// Lazy unlock: a lapsed lockout resets the window before the
		// new attempt is evaluated.
		if sn.Lockout.Expired(now) {
			sn.Lockout = lockout.State{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if locked {
		s.logger.Warn(ctx, "login rejected: session locked",
			"username", in.Username, "minutes_left", lockout.MinutesLeft(remaining))
		return s.renderFailure(ctx, sessID, OutcomeLocked, lockedMessage(remaining))
	}

	if in.Username == "" || in.Password == "" {
		return s.renderFailure(ctx, sessID, OutcomeValidation, msgMissingCredentials)
	}

	user, err := s.directory.FetchIdentity(ctx, in.Username)
	if err != nil {
		return s.loginFailed(ctx, sessID, in.Username, now, err)
	}

	key, err := cryptox.DeriveKey(in.Password, user.Salt)
	if err != nil {
		// Only reachable with a malformed Directory record (empty salt).
		s.logger.Error(ctx, "key derivation failed", "username", in.Username, "error", err)
		return s.renderFailure(ctx, sessID, OutcomeUnavailable, msgLoginFailure)
	}

	identity, err := s.directory.Verify(ctx, in.Username, key)
	if err != nil {
		return s.loginFailed(ctx, sessID, in.Username, now, err)
	}
	if identity.ID == "" {
		identity.ID = user.ID
	}
	if identity.Email == "" {
		identity.Email = user.Email
	}

	if _, err := s.sessions.Authenticate(ctx, sessID, identity, in.Remember); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "login succeeded", "username", in.Username, "remember", in.Remember)

	// Fresh challenge for whatever form the session sees next.
	return s.renderSuccess(ctx, sessID, "")
}

// Register validates the form, verifies and consumes the challenge, and
// submits the new account to the Directory. No auto-login on success.
func (s *Service) Register(ctx context.Context, sessID string, in RegisterInput) (*Result, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" ||
		in.ConfirmPassword == "" || in.CaptchaAnswer == "" {
		return s.renderFailure(ctx, sessID, OutcomeValidation, msgMissingFields)
	}
	if !usernamePattern.MatchString(in.Username) {
		return s.renderFailure(ctx, sessID, OutcomeValidation, msgBadUsername)
	}
	if in.Password != in.ConfirmPassword {
		return s.renderFailure(ctx, sessID, OutcomeValidation, msgPasswordMismatch)
	}
	if len(in.Password) <= minPasswordLength {
		return s.renderFailure(ctx, sessID, OutcomeValidation, msgWeakPassword)
	}

	// Verify and consume the outstanding challenge and substitute a fresh
	// one in the same atomic step, so the old answer is dead either way.
	ch := captcha.New()
	var answered bool
	sess, err := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		answered = sn.CaptchaSet && captcha.Verify(sn.CaptchaAnswer, in.CaptchaAnswer)
		sn.CaptchaAnswer = ch.Answer
		sn.CaptchaSet = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	attempts := sess.Lockout.Attempts
	if !answered {
		return &Result{
			Outcome:         OutcomeValidation,
			Error:           msgBadCaptcha,
			CaptchaQuestion: ch.Question,
			LoginAttempts:   attempts,
		}, nil
	}

	salt, key, err := cryptox.DeriveNew(in.Password)
	if err != nil {
		return nil, fmt.Errorf("deriving credentials: %w", err)
	}

	res := &Result{CaptchaQuestion: ch.Question, LoginAttempts: attempts}
	switch err := s.directory.CreateAccount(ctx, in.Username, in.Email, salt, key); {
	case err == nil:
		s.logger.Info(ctx, "account created", "username", in.Username)
		res.Outcome = OutcomeOK
		res.Success = msgRegistered
	case errors.Is(err, directory.ErrConflict):
		res.Outcome = OutcomeConflict
		res.Error = msgConflict
	case errors.Is(err, directory.ErrUnavailable):
		s.logger.Error(ctx, "identity directory unavailable", "op", "create account", "error", err)
		res.Outcome = OutcomeUnavailable
		res.Error = msgRegisterFailure
	default:
		s.logDirectoryError(ctx, in.Username, err)
		res.Outcome = OutcomeRejected
		res.Error = msgRegisterRejected
	}
	return res, nil
}

// Logout destroys the session. Idempotent: logging out an anonymous or
// already-destroyed session succeeds.
func (s *Service) Logout(ctx context.Context, sessID string) error {
	if sessID == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessID)
}

// loginFailed classifies a Directory error for a login attempt. Only
// rejections count against the lockout policy; an unreachable Directory
// leaves the counter untouched.
func (s *Service) loginFailed(ctx context.Context, sessID, username string, now time.Time, err error) (*Result, error) {
	if errors.Is(err, directory.ErrUnavailable) {
		s.logger.Error(ctx, "identity directory unavailable", "username", username, "error", err)
		return s.renderFailure(ctx, sessID, OutcomeUnavailable, msgLoginFailure)
	}

	s.logDirectoryError(ctx, username, err)

	ch := captcha.New()
	var state lockout.State
	_, uerr := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		sn.Lockout = sn.Lockout.Failure(now)
		state = sn.Lockout
		sn.CaptchaAnswer = ch.Answer
		sn.CaptchaSet = true
		return nil
	})
	if uerr != nil {
		return nil, uerr
	}

	res := &Result{CaptchaQuestion: ch.Question, LoginAttempts: state.Attempts}
	if d, locked := state.Locked(now); locked {
		s.logger.Warn(ctx, "session locked after repeated failures",
			"username", username, "attempts", state.Attempts)
		res.Outcome = OutcomeLocked
		res.Error = lockedMessage(d)
	} else {
		res.Outcome = OutcomeRejected
		res.Error = msgInvalidCredentials
	}
	return res, nil
}

// logDirectoryError separates expected rejections from protocol
// surprises: both look identical to the user, but operators need the
// status code when the Directory answers something undefined.
func (s *Service) logDirectoryError(ctx context.Context, username string, err error) {
	var statusErr *directory.StatusError
	if errors.As(err, &statusErr) {
		s.logger.Error(ctx, "unexpected directory response",
			"username", username, "op", statusErr.Op, "status", statusErr.Code)
		return
	}
	s.logger.Info(ctx, "authentication rejected", "username", username)
}

// renderFailure swaps in a fresh challenge and builds the re-rendered
// form state for a failure that does not count against the lockout.
func (s *Service) renderFailure(ctx context.Context, sessID string, outcome Outcome, msg string) (*Result, error) {
	ch := captcha.New()
	sess, err := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		sn.CaptchaAnswer = ch.Answer
		sn.CaptchaSet = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Outcome:         outcome,
		Error:           msg,
		CaptchaQuestion: ch.Question,
		LoginAttempts:   sess.Lockout.Attempts,
	}, nil
}

func (s *Service) renderSuccess(ctx context.Context, sessID, success string) (*Result, error) {
	ch := captcha.New()
	_, err := s.sessions.Update(ctx, sessID, func(sn *session.Session) error {
		sn.CaptchaAnswer = ch.Answer
		sn.CaptchaSet = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeOK, Success: success, CaptchaQuestion: ch.Question}, nil
}

func lockedMessage(remaining time.Duration) string {
	return fmt.Sprintf("Account locked. Please try again in %d minutes.", lockout.MinutesLeft(remaining))
}
