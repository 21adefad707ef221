package membership

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/internal/store/memory"
)

type fakeNotifier struct {
	mu            sync.Mutex
	verifications []notify.VerificationEmail
	logins        []notify.LoginLinkEmail
	err           error
}

func (n *fakeNotifier) SendVerification(_ context.Context, p notify.VerificationEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, p)
	if n.err != nil {
		return &notify.DeliveryError{Category: notify.CategoryVerification, Recipient: p.To, Err: n.err}
	}
	return nil
}

func (n *fakeNotifier) SendLoginLink(_ context.Context, p notify.LoginLinkEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins = append(n.logins, p)
	if n.err != nil {
		return &notify.DeliveryError{Category: notify.CategoryLoginLink, Recipient: p.To, Err: n.err}
	}
	return nil
}

type fakeCache struct{ invalidated []string }

func (c *fakeCache) Invalidate(_ context.Context, code string) error {
	c.invalidated = append(c.invalidated, code)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *fakeNotifier
	cache    *fakeCache
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)}
	st := memory.New().WithClock(clk.Now)
	n := &fakeNotifier{}
	c := &fakeCache{}
	svc := NewService(st, n, Config{BaseURL: "https://aether.community/"}, nil)
	svc.SetClock(clk.Now)
	svc.SetInvalidator(c)
	return &fixture{svc: svc, store: st, notifier: n, cache: c, clock: clk}
}

func janeInput() RegisterInput {
	return RegisterInput{
		FullName:          "Jane Doe",
		Email:             "jane@example.com",
		Location:          "Lagos, Nigeria",
		ProfessionalLevel: "Mid-level",
		CurrentRole:       "Designer",
		InterestAreas:     []string{"AI", "Design"},
	}
}

var verifyLinkPattern = regexp.MustCompile(`^https://aether\.community/auth/verify\?token=[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	require.Regexp(t, verifyLinkPattern, link)
	return link[len("https://aether.community/auth/verify?token="):]
}

func (f *fixture) verify(t *testing.T) *models.Member {
	t.Helper()
	_, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	token := tokenFromLink(t, f.notifier.verifications[len(f.notifier.verifications)-1].Link)
	m, err := f.svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	return m
}

func TestRegister_FreshEmail(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)

	members := f.store.Members()
	require.Len(t, members, 1)
	stored := members[0]
	assert.False(t, stored.EmailVerified)
	assert.False(t, stored.ProfileComplete)
	assert.NotEmpty(t, stored.VerificationToken)
	require.NotNil(t, stored.VerificationTokenExpires)
	assert.True(t, stored.VerificationTokenExpires.After(f.clock.Now()))
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), *stored.VerificationTokenExpires)
	assert.Regexp(t, `^AX-\d{4}$`, m.Code)
	assert.Equal(t, models.DefaultPlatform, stored.PreferredPlatform)

	require.Len(t, f.notifier.verifications, 1)
	sent := f.notifier.verifications[0]
	assert.Equal(t, "jane@example.com", sent.To)
	assert.Equal(t, m.Code, sent.MemberCode)
	assert.Equal(t, stored.VerificationToken, tokenFromLink(t, sent.Link))
}

func TestRegister_NormalizesEmail(t *testing.T) {
	f := newFixture(t)
	in := janeInput()
	in.Email = "  Jane@Example.COM "

	m, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", m.Email)
}

func TestRegister_RejectsVerifiedEmail(t *testing.T) {
	f := newFixture(t)
	f.verify(t)

	in := janeInput()
	in.Email = "JANE@example.com"
	_, err := f.svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Len(t, f.store.Members(), 1)
	assert.Len(t, f.notifier.verifications, 1)
}

func TestRegister_PendingEmailUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	firstToken := f.store.Members()[0].VerificationToken

	in := janeInput()
	in.FullName = "Jane A. Doe"
	second, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	members := f.store.Members()
	require.Len(t, members, 1)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "Jane A. Doe", members[0].FullName)
	assert.NotEqual(t, firstToken, members[0].VerificationToken)
	assert.Len(t, f.notifier.verifications, 2)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	in := janeInput()
	in.FullName = "J"
	in.Email = "nope"
	in.Location = ""

	_, err := f.svc.Register(context.Background(), in)
	require.ErrorIs(t, err, ErrValidation)
	fields := FieldErrors(err)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "location")
	assert.Empty(t, f.store.Members())
}

func TestRegister_DeliveryFailureKeepsMember(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	m, err := f.svc.Register(context.Background(), janeInput())
	require.Error(t, err)
	assert.True(t, notify.IsDeliveryError(err))
	require.NotNil(t, m)
	assert.Len(t, f.store.Members(), 1)
}

func TestRegister_CodeCollisionFallsBack(t *testing.T) {
	f := newFixture(t)
	f.svc.SetCodeGenerator(func() (string, error) { return "AX-0001", nil })

	other := janeInput()
	other.Email = "first@example.com"
	m1, err := f.svc.Register(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, "AX-0001", m1.Code)

	m2, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	assert.Regexp(t, `^AX-[0-9A-F]{8}$`, m2.Code)
}

func TestVerifyToken_ActivatesOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	token := tokenFromLink(t, f.notifier.verifications[0].Link)

	m, err := f.svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, m.EmailVerified)
	require.NotNil(t, m.ActivatedAt)
	assert.Equal(t, f.clock.Now(), *m.ActivatedAt)
	assert.Empty(t, m.VerificationToken)

	_, err = f.svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	token := tokenFromLink(t, f.notifier.verifications[0].Link)

	f.clock.Advance(31 * time.Minute)
	_, err = f.svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, f.store.Members()[0].EmailVerified)
}

func TestVerifyToken_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.VerifyToken(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestRequestLoginLink_NotActivated(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)

	err = f.svc.RequestLoginLink(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, ErrNotActivated)
	assert.Empty(t, f.notifier.logins)
}

func TestRequestLoginLink_Unknown(t *testing.T) {
	f := newFixture(t)
	err := f.svc.RequestLoginLink(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestLoginLink_IssuesFreshToken(t *testing.T) {
	f := newFixture(t)
	f.verify(t)
	verificationToken := tokenFromLink(t, f.notifier.verifications[0].Link)

	require.NoError(t, f.svc.RequestLoginLink(context.Background(), "Jane@Example.com"))
	require.Len(t, f.notifier.logins, 1)
	first := tokenFromLink(t, f.notifier.logins[0].Link)
	assert.NotEqual(t, verificationToken, first)
	assert.Equal(t, 15*time.Minute, f.notifier.logins[0].ExpiresIn)

	require.NoError(t, f.svc.RequestLoginLink(context.Background(), "jane@example.com"))
	require.Len(t, f.notifier.logins, 2)
	second := tokenFromLink(t, f.notifier.logins[1].Link)
	assert.NotEqual(t, first, second)

	// Only the newest login token is valid.
	_, err := f.svc.VerifyToken(context.Background(), first)
	assert.ErrorIs(t, err, ErrInvalidToken)
	m, err := f.svc.VerifyToken(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, m.EmailVerified)
	_, err = f.svc.VerifyToken(context.Background(), second)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestLoginLink_Expired(t *testing.T) {
	f := newFixture(t)
	f.verify(t)
	require.NoError(t, f.svc.RequestLoginLink(context.Background(), "jane@example.com"))
	token := tokenFromLink(t, f.notifier.logins[0].Link)

	f.clock.Advance(16 * time.Minute)
	_, err := f.svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCompleteProfile(t *testing.T) {
	f := newFixture(t)
	verified := f.verify(t)

	m, err := f.svc.CompleteProfile(context.Background(), "jane@example.com", ProfileInput{
		FullName:  "Jane Doe",
		City:      "Lagos",
		Country:   "Nigeria",
		Interests: []string{"AI", " "},
		Consent:   true,
	})
	require.NoError(t, err)
	assert.True(t, m.ProfileComplete)
	assert.True(t, m.EmailVerified)
	assert.Equal(t, "Lagos, Nigeria", m.Location)
	assert.Equal(t, []string{"AI"}, m.InterestAreas)
	require.NotNil(t, m.ProfileCompletedAt)
	assert.Equal(t, []string{verified.Code}, f.cache.invalidated)
}

func TestCompleteProfile_RequiresConsent(t *testing.T) {
	f := newFixture(t)
	f.verify(t)

	_, err := f.svc.CompleteProfile(context.Background(), "jane@example.com", ProfileInput{
		FullName: "Jane Doe", City: "Lagos", Country: "Nigeria", Interests: []string{"AI"},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, FieldErrors(err), "consent")
	assert.Empty(t, f.cache.invalidated)
}

func TestCompleteProfile_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CompleteProfile(context.Background(), "ghost@example.com", ProfileInput{
		FullName: "Ghost", City: "Lagos", Country: "Nigeria", Interests: []string{"AI"}, Consent: true,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSignInWithProvider_NewMember(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.SignInWithProvider(context.Background(), "New@Example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", m.Email)
	assert.Equal(t, "new", m.FullName)
	assert.True(t, m.EmailVerified)
	assert.False(t, m.ProfileComplete)
	assert.Len(t, f.store.Members(), 1)

	again, err := f.svc.SignInWithProvider(context.Background(), "new@example.com", "New Person")
	require.NoError(t, err)
	assert.Equal(t, m.Code, again.Code)
	assert.Len(t, f.store.Members(), 1)
}

func TestSignInWithProvider_VerifiesPendingMember(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)
	token := tokenFromLink(t, f.notifier.verifications[0].Link)

	m, err := f.svc.SignInWithProvider(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.True(t, m.EmailVerified)
	assert.Empty(t, m.VerificationToken)

	_, err = f.svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMember(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Register(context.Background(), janeInput())
	require.NoError(t, err)

	m, err := f.svc.Member(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", m.FullName)

	_, err = f.svc.Member(context.Background(), "AX-9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingMembers struct {
	store.Members
	err error
}

func (f failingMembers) FindByEmail(context.Context, string) (*models.Member, error) {
	return nil, f.err
}

func TestRegister_StoreErrorPropagates(t *testing.T) {
	storeErr := &store.StoreError{StatusCode: 401, Kind: store.KindAuth, Message: "bad key"}
	svc := NewService(failingMembers{err: storeErr}, &fakeNotifier{}, Config{}, nil)

	_, err := svc.Register(context.Background(), janeInput())
	require.Error(t, err)
	assert.Equal(t, store.KindAuth, store.KindOf(err))
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		assert.Regexp(t, `^AX-\d{4}$`, code)
	}
}
