// Package membership implements the member lifecycle: signup, email
// verification, magic login links, provider sign-in and profile completion.
//
// A member moves from unregistered to pending (verification token issued)
// to verified (token redeemed). Profile completion is tracked separately
// and is what the page gate keys off.
package membership

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/validation"
)

const (
	DefaultVerificationTTL = 30 * time.Minute
	DefaultLoginTTL        = 15 * time.Minute
	verifyPath             = "/auth/verify"
)

// Notifier sends the emails the lifecycle depends on.
type Notifier interface {
	SendVerification(ctx context.Context, p notify.VerificationEmail) error
	SendLoginLink(ctx context.Context, p notify.LoginLinkEmail) error
}

// Invalidator drops cached views of a member's profile.
type Invalidator interface {
	Invalidate(ctx context.Context, code string) error
}

// Config holds lifecycle settings.
type Config struct {
	BaseURL         string
	VerificationTTL time.Duration
	LoginTTL        time.Duration
}

// RegisterInput is the signup form.
type RegisterInput struct {
	FullName          string   `json:"full_name" binding:"required,min=2,max=120"`
	Email             string   `json:"email" binding:"required,email"`
	Location          string   `json:"location" binding:"required,min=2,max=120"`
	ProfessionalLevel string   `json:"professional_level" binding:"required"`
	CurrentRole       string   `json:"current_role" binding:"required"`
	InterestAreas     []string `json:"interest_areas" binding:"required,min=1"`
	PreferredPlatform string   `json:"preferred_platform"`
	SocialHandle      string   `json:"social_handle" binding:"max=120"`
	Goals             string   `json:"goals" binding:"max=2000"`
}

// ProfileInput is the profile completion form.
type ProfileInput struct {
	FullName  string   `json:"full_name" binding:"required,min=2,max=120"`
	City      string   `json:"city" binding:"required,min=2,max=80"`
	Country   string   `json:"country" binding:"required,min=2,max=80"`
	Phone     string   `json:"phone" binding:"max=32"`
	Interests []string `json:"interests" binding:"required,min=1"`
	Consent   bool     `json:"consent" binding:"required"`
}

type emailInput struct {
	Email string `json:"email" binding:"required,email"`
}

// Service runs the member lifecycle against a record store.
type Service struct {
	members  store.Members
	notifier Notifier
	cache    Invalidator
	logger   *zap.Logger

	baseURL         string
	verificationTTL time.Duration
	loginTTL        time.Duration

	now    func() time.Time
	tokens func() string
	codes  func() (string, error)
}

// NewService creates a lifecycle service.
func NewService(members store.Members, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	if cfg.LoginTTL <= 0 {
		cfg.LoginTTL = DefaultLoginTTL
	}
	return &Service{
		members:         members,
		notifier:        notifier,
		logger:          logger,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		verificationTTL: cfg.VerificationTTL,
		loginTTL:        cfg.LoginTTL,
		now:             time.Now,
		tokens:          uuid.NewString,
		codes:           RandomCode,
	}
}

// SetInvalidator sets the profile cache to clear on profile changes.
func (s *Service) SetInvalidator(c Invalidator) { s.cache = c }

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetCodeGenerator replaces the membership code source.
func (s *Service) SetCodeGenerator(fn func() (string, error)) { s.codes = fn }

// LoginTTL is how long a login link stays valid.
func (s *Service) LoginTTL() time.Duration { return s.loginTTL }

// VerifyLink builds the link a token is redeemed at.
func (s *Service) VerifyLink(token string) string {
	return s.baseURL + verifyPath + "?token=" + url.QueryEscape(token)
}

// Register creates or refreshes a pending member and sends the verification
// email. When delivery fails the member is still stored and the returned
// error wraps a *notify.DeliveryError; signing up again resends the email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Member, error) {
	in = normalizeRegister(in)
	if fields := validation.Validate(in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	existing, err := s.members.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.EmailVerified:
		return nil, ErrAlreadyExists
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find member: %w", err)
	}

	var code string
	if existing != nil {
		code = existing.Code
	} else if code, err = s.allocateCode(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.verificationTTL)
	m := &models.Member{
		Code:                     code,
		FullName:                 in.FullName,
		Email:                    in.Email,
		Location:                 in.Location,
		ProfessionalLevel:        in.ProfessionalLevel,
		CurrentRole:              in.CurrentRole,
		InterestAreas:            in.InterestAreas,
		PreferredPlatform:        in.PreferredPlatform,
		SocialHandle:             in.SocialHandle,
		Goals:                    in.Goals,
		CreatedAt:                now,
		VerificationToken:        s.tokens(),
		VerificationTokenExpires: &expires,
	}
	saved, err := s.members.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	s.logger.Info("member registered", zap.String("code", saved.Code), zap.Bool("refreshed", existing != nil))

	err = s.notifier.SendVerification(ctx, notify.VerificationEmail{
		To:         saved.Email,
		Name:       saved.FullName,
		MemberCode: saved.Code,
		Link:       s.VerifyLink(m.VerificationToken),
	})
	if err != nil {
		return saved, fmt.Errorf("send verification email: %w", err)
	}
	return saved, nil
}

// VerifyToken redeems a verification or login token and returns the member
// the caller should sign in.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.Member, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}
	m, err := s.members.ConsumeToken(ctx, token, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	s.logger.Info("token redeemed", zap.String("code", m.Code))
	return m, nil
}

// RequestLoginLink issues a fresh login token to a verified member and
// emails the link.
func (s *Service) RequestLoginLink(ctx context.Context, email string) error {
	in := emailInput{Email: models.NormalizeEmail(email)}
	if fields := validation.Validate(in); fields != nil {
		return &ValidationError{Fields: fields}
	}

	m, err := s.members.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find member: %w", err)
	}
	if !m.EmailVerified {
		return ErrNotActivated
	}

	token := s.tokens()
	m, err = s.members.IssueToken(ctx, in.Email, token, s.now().Add(s.loginTTL))
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotActivated
	}
	if err != nil {
		return fmt.Errorf("issue login token: %w", err)
	}

	err = s.notifier.SendLoginLink(ctx, notify.LoginLinkEmail{
		To:        m.Email,
		Name:      m.FullName,
		Link:      s.VerifyLink(token),
		ExpiresIn: s.loginTTL,
	})
	if err != nil {
		return fmt.Errorf("send login link: %w", err)
	}
	return nil
}

// CompleteProfile stores the profile form and marks the profile complete.
func (s *Service) CompleteProfile(ctx context.Context, email string, in ProfileInput) (*models.Member, error) {
	in = normalizeProfile(in)
	if fields := validation.Validate(in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	m, err := s.members.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}

	now := s.now()
	complete := true
	location := in.City + ", " + in.Country
	updated, err := s.members.Update(ctx, m.Code, models.MemberUpdate{
		FullName:           &in.FullName,
		Location:           &location,
		City:               &in.City,
		Country:            &in.Country,
		Phone:              &in.Phone,
		InterestAreas:      in.Interests,
		ProfileComplete:    &complete,
		ProfileCompletedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	s.invalidate(ctx, updated.Code)
	s.logger.Info("profile completed", zap.String("code", updated.Code))
	return updated, nil
}

// SignInWithProvider signs in a member whose email an identity provider has
// confirmed. Unknown emails get a new verified member with an incomplete
// profile; pending members are verified and their tokens cleared.
func (s *Service) SignInWithProvider(ctx context.Context, email, name string) (*models.Member, error) {
	in := emailInput{Email: models.NormalizeEmail(email)}
	if fields := validation.Validate(in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	now := s.now()
	verified := true

	m, err := s.members.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && m.EmailVerified:
		return m, nil
	case err == nil:
		m, err = s.members.Update(ctx, m.Code, models.MemberUpdate{
			EmailVerified: &verified,
			ActivatedAt:   &now,
			ClearTokens:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("verify member: %w", err)
		}
		s.invalidate(ctx, m.Code)
		return m, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find member: %w", err)
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}
	m, err = s.members.Create(ctx, &models.Member{
		Code:              code,
		FullName:          name,
		Email:             in.Email,
		PreferredPlatform: models.DefaultPlatform,
		EmailVerified:     true,
		CreatedAt:         now,
		ActivatedAt:       &now,
	})
	if err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	s.logger.Info("member created from provider sign-in", zap.String("code", m.Code))
	return m, nil
}

// Member returns the member with the given code.
func (s *Service) Member(ctx context.Context, code string) (*models.Member, error) {
	m, err := s.members.FindByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Service) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, code); err != nil {
		s.logger.Warn("profile cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
}

func normalizeRegister(in RegisterInput) RegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = models.NormalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	in.ProfessionalLevel = strings.TrimSpace(in.ProfessionalLevel)
	in.CurrentRole = strings.TrimSpace(in.CurrentRole)
	in.InterestAreas = trimAll(in.InterestAreas)
	in.PreferredPlatform = strings.TrimSpace(in.PreferredPlatform)
	if in.PreferredPlatform == "" {
		in.PreferredPlatform = models.DefaultPlatform
	}
	in.SocialHandle = strings.TrimSpace(in.SocialHandle)
	in.Goals = strings.TrimSpace(in.Goals)
	return in
}

func normalizeProfile(in ProfileInput) ProfileInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Interests = trimAll(in.Interests)
	return in
}

// trimAll trims every value and drops empty ones, keeping a nil input nil.
func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
