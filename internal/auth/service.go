// Package auth signs admins in and out and decides, per request, whether the
// admin screens may be shown.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
	"github.com/vbonduro/vlogadmin/internal/session"
)

// Principal defaults for profiles with missing fields.
const (
	DefaultName  = "No Name"
	DefaultImage = "/static/admin-avatar.png"
	DefaultRole  = "(Admin)"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong
// password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Principal is the signed-in admin as shown in the page chrome.
type Principal struct {
	UID       string
	Email     string
	Name      string
	ImageURL  string
	Role      string
	SessionID string
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Put(ctx context.Context, id string, u *domain.User) error
}

type CredentialStore interface {
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	Put(ctx context.Context, id string, c *domain.Credential) error
}

type Service struct {
	users    UserStore
	creds    CredentialStore
	sessions session.Store
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

func NewService(users UserStore, creds CredentialStore, sessions session.Store, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		creds:    creds,
		sessions: sessions,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		logger:   logger,
		subs:     make(map[int]func(Event)),
	}
}

type Registration struct {
	Name            string
	NIC             string
	ContactNumber   string
	Email           string
	Password        string
	ConfirmPassword string
	ProfileImageURL string
	Role            string
}

// Validate returns a message per invalid field.
func (r Registration) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "Name is required"
	}
	if strings.TrimSpace(r.NIC) == "" {
		errs["nic"] = "NIC is required"
	}
	if strings.TrimSpace(r.ContactNumber) == "" {
		errs["contactNumber"] = "Contact Number is required"
	}
	switch {
	case strings.TrimSpace(r.Email) == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(r.Email):
		errs["email"] = "Email is not valid"
	}
	switch {
	case r.Password == "":
		errs["password"] = "Password is required"
	case len(r.Password) < minPasswordLength:
		errs["password"] = "Password must be at least 6 characters"
	}
	switch {
	case r.ConfirmPassword == "":
		errs["confirmPassword"] = "Confirm password is required"
	case r.Password != r.ConfirmPassword:
		errs["confirmPassword"] = "Passwords do not match"
	}
	return errs
}

// Register creates the credential and the profile document for a new admin.
func (s *Service) Register(ctx context.Context, r Registration) (*domain.User, error) {
	if errs := r.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}

	email := normalizeEmail(r.Email)
	existing, err := s.creds.GetByID(ctx, email)
	if err != nil {
		return nil, apperr.Classify("could not reach the account store", fmt.Errorf("failed to look up credential: %w", err))
	}
	if existing != nil {
		return nil, apperr.Validation(map[string]string{"email": "Email is already registered"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uid := uuid.NewString()
	user := &domain.User{
		Name:            strings.TrimSpace(r.Name),
		NIC:             strings.TrimSpace(r.NIC),
		ContactNumber:   strings.TrimSpace(r.ContactNumber),
		Email:           email,
		ProfileImageURL: r.ProfileImageURL,
		Role:            r.Role,
	}
	if err := s.users.Put(ctx, uid, user); err != nil {
		return nil, apperr.Classify("could not save the profile", fmt.Errorf("failed to save user: %w", err))
	}
	cred := &domain.Credential{UID: uid, Email: email, PasswordHash: string(hash)}
	if err := s.creds.Put(ctx, email, cred); err != nil {
		return nil, apperr.Classify("could not save the credential", fmt.Errorf("failed to save credential: %w", err))
	}

	s.logger.Info("admin registered", "uid", uid)
	return user, nil
}

// SignIn checks the password and opens a session. The returned token goes in
// the session cookie; only its hash is stored.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *Principal, error) {
	errs := make(map[string]string)
	if strings.TrimSpace(email) == "" {
		errs["email"] = "Email is required"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) > 0 {
		return "", nil, apperr.Validation(errs)
	}

	email = normalizeEmail(email)
	cred, err := s.creds.GetByID(ctx, email)
	if err != nil {
		return "", nil, apperr.Classify("could not reach the account store", fmt.Errorf("failed to look up credential: %w", err))
	}
	if cred == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	sid := HashToken(token)
	data := session.Data{UID: cred.UID, Email: cred.Email, CreatedAt: s.now()}
	if err := s.sessions.Save(ctx, sid, data, s.ttl); err != nil {
		return "", nil, apperr.Classify("could not start a session", err)
	}

	p, err := s.principal(ctx, sid, data)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("admin signed in", "uid", cred.UID)
	s.publish(Event{Kind: SignedIn, SessionID: sid, UID: cred.UID})
	return token, p, nil
}

// SignOut revokes the session behind token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sid := HashToken(token)
	data, lookupErr := s.sessions.Lookup(ctx, sid)
	if err := s.sessions.Revoke(ctx, sid); err != nil {
		return apperr.Classify("could not end the session", err)
	}
	ev := Event{Kind: SignedOut, SessionID: sid}
	if lookupErr == nil {
		ev.UID = data.UID
	}
	s.logger.Info("admin signed out", "uid", ev.UID)
	s.publish(ev)
	return nil
}

// Resolve maps a session token to its principal. It returns (nil, nil) when
// the token does not name a live session and an error when the session
// backend could not answer.
func (s *Service) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, nil
	}
	sid := HashToken(token)
	data, err := s.sessions.Lookup(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return s.principal(ctx, sid, data)
}

func (s *Service) principal(ctx context.Context, sid string, data session.Data) (*Principal, error) {
	p := &Principal{
		UID:       data.UID,
		Email:     data.Email,
		Name:      DefaultName,
		ImageURL:  DefaultImage,
		Role:      DefaultRole,
		SessionID: sid,
	}
	u, err := s.users.GetByID(ctx, data.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if u != nil {
		if u.Name != "" {
			p.Name = u.Name
		}
		if u.ProfileImageURL != "" {
			p.ImageURL = u.ProfileImageURL
		}
		if u.Role != "" {
			p.Role = u.Role
		}
	}
	return p, nil
}

// HashToken is the session store key for a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
