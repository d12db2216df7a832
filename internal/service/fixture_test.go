package service

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/domain"
	"github.com/sandeepkv93/otp-account-service/internal/mailer"
	mailergomock "github.com/sandeepkv93/otp-account-service/internal/mailer/gomock"
	"github.com/sandeepkv93/otp-account-service/internal/repository"
	repogomock "github.com/sandeepkv93/otp-account-service/internal/repository/gomock"
	"github.com/sandeepkv93/otp-account-service/internal/security"

	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

type accountServiceFixture struct {
	svc    *AccountService
	users  *userRepoState
	mail   *mailState
	tokens *security.JWTManager
	now    time.Time
}

func newAccountServiceFixture() *accountServiceFixture {
	fx := &accountServiceFixture{
		users: newUserRepoState(),
		mail:  &mailState{},
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return fx.now }

	ctrl := gomock.NewController(tNop{})
	repoMock := repogomock.NewMockUserRepository(ctrl)
	repoMock.EXPECT().FindByID(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.users.FindByID)
	repoMock.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.users.FindByEmail)
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.users.Create)
	repoMock.EXPECT().ConsumeOTP(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.users.ConsumeOTP)
	repoMock.EXPECT().UpdatePasswordHash(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.users.UpdatePasswordHash)

	senderMock := mailergomock.NewMockSender(ctrl)
	senderMock.EXPECT().Send(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(fx.mail.Send)

	jwtMgr, err := security.NewJWTManager("test-issuer", "test-audience", testJWTSecret)
	if err != nil {
		panic(err)
	}
	fx.tokens = jwtMgr.WithClock(clock)

	policy := AccountPolicy{
		SessionTTL:   time.Hour,
		ResetTTL:     15 * time.Minute,
		OTPTTL:       10 * time.Minute,
		OTPLength:    6,
		ResetBaseURL: "http://localhost:4000/reset-password",
	}
	fx.svc = NewAccountService(policy, repoMock, security.NewPasswordHasher(bcrypt.MinCost), fx.tokens, NewAccountNotifier(senderMock, time.Second, nil))
	fx.svc.now = clock
	return fx
}

func (fx *accountServiceFixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

// registerVerified registers an account and confirms it with the mailed OTP.
func (fx *accountServiceFixture) registerVerified(email, password string) *domain.User {
	ctx := context.Background()
	res, err := fx.svc.Register(ctx, email, password)
	if err != nil {
		panic(err)
	}
	user, err := fx.svc.VerifyAccount(ctx, email, fx.users.otpFor(res.User.ID))
	if err != nil {
		panic(err)
	}
	return user
}

type tNop struct{}

func (tNop) Errorf(string, ...any) {}
func (tNop) Fatalf(string, ...any) {}
func (tNop) Helper()               {}

type userRepoState struct {
	mu        sync.Mutex
	nextID    uint
	byID      map[uint]*domain.User
	createErr error
	findErr   error
}

func newUserRepoState() *userRepoState {
	return &userRepoState{nextID: 1, byID: map[uint]*domain.User{}}
}

func (s *userRepoState) FindByID(_ context.Context, id uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoState) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *userRepoState) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, u := range s.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = s.nextID
	s.nextID++
	cp := *user
	s.byID[user.ID] = &cp
	return nil
}

func (s *userRepoState) ConsumeOTP(_ context.Context, userID uint, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok || u.OTP == nil || *u.OTP != otp {
		return repository.ErrOTPNotPending
	}
	u.IsVerified = true
	u.OTP = nil
	u.OTPExpiry = nil
	return nil
}

func (s *userRepoState) UpdatePasswordHash(_ context.Context, userID uint, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *userRepoState) delete(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *userRepoState) get(id uint) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.byID[id]
}

func (s *userRepoState) otpFor(id uint) string {
	u := s.get(id)
	if u.OTP == nil {
		return ""
	}
	return *u.OTP
}

type mailState struct {
	mu      sync.Mutex
	sent    []mailer.Message
	sendErr error
}

func (m *mailState) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailState) last() (mailer.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *mailState) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func errRepoEmailTaken() error { return repository.ErrEmailTaken }
