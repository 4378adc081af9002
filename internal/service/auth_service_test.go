package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/hashing"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory хранилище для юнит-тестов аутентификации.

type authStore struct {
	users   map[uuid.UUID]models.User
	otps    map[uuid.UUID]models.OTP
	refresh map[string]models.RefreshToken // по хэшу
}

func newAuthStore() *authStore {
	return &authStore{
		users:   map[uuid.UUID]models.User{},
		otps:    map[uuid.UUID]models.OTP{},
		refresh: map[string]models.RefreshToken{},
	}
}

type fakeUserRepo struct{ s *authStore }

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	for _, ex := range f.s.users {
		if strings.EqualFold(ex.Username, u.Username) {
			return errors.New(`duplicate key value violates unique constraint "ux_users_username_lower"`)
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	f.s.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.s.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, _ := f.GetByUsername(ctx, username)
	return u != nil, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, u *models.User) error {
	ex, ok := f.s.users[u.ID]
	if !ok {
		return errors.New("user not found")
	}
	ex.Password = u.Password
	f.s.users[u.ID] = ex
	return nil
}

type fakeOTPRepo struct{ s *authStore }

func (f *fakeOTPRepo) Create(ctx context.Context, o *models.OTP) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	f.s.otps[o.ID] = *o
	return nil
}

func (f *fakeOTPRepo) GetForUpdate(ctx context.Context, id uuid.UUID, code string) (*models.OTP, error) {
	o, ok := f.s.otps[id]
	if !ok || o.Code != code {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeOTPRepo) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	o, ok := f.s.otps[id]
	if !ok || o.IsUsed {
		return false, nil
	}
	o.IsUsed = true
	f.s.otps[id] = o
	return true, nil
}

func (f *fakeOTPRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, o := range f.s.otps {
		if o.CreatedAt.Before(cutoff) {
			delete(f.s.otps, id)
			n++
		}
	}
	return n, nil
}

type fakeRefreshRepo struct{ s *authStore }

func (f *fakeRefreshRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.s.refresh[t.TokenHash] = *t
	return nil
}

func (f *fakeRefreshRepo) GetByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if t, ok := f.s.refresh[hash]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeRefreshRepo) IsActiveByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	t, ok := f.s.refresh[hash]
	return ok && !t.Revoked && t.ExpiresAt.After(now), nil
}

func (f *fakeRefreshRepo) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	t, ok := f.s.refresh[hash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	f.s.refresh[hash] = t
	return true, nil
}

func (f *fakeRefreshRepo) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for hash, t := range f.s.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			f.s.refresh[hash] = t
			n++
		}
	}
	return n, nil
}

type fakeCache struct{ limited map[string]bool }

func (f *fakeCache) CheckRateLimit(ctx context.Context, key string) (bool, error) {
	return f.limited[key], nil
}

func (f *fakeCache) SetRateLimit(ctx context.Context, key string, ttl time.Duration) error {
	f.limited[key] = true
	return nil
}

func newAuthTestEnv(t *testing.T, cache service.CacheClient) (*authStore, *service.AuthService) {
	t.Helper()
	s := newAuthStore()
	repo := &repository.Repository{
		Users:   &fakeUserRepo{s: s},
		OTPs:    &fakeOTPRepo{s: s},
		Refresh: &fakeRefreshRepo{s: s},
	}
	tokens := token.NewHSProvider("test-secret", "orderflow", "orderflow-clients")
	svc := service.NewAuthService(repo, hashing.NewBcrypt(4), tokens, cache, nil,
		15*time.Minute, 24*time.Hour, zap.NewNop())
	return s, svc
}

const testMobile = "09121234567"

func issuedOTP(t *testing.T, s *authStore, id uuid.UUID) models.OTP {
	t.Helper()
	otp, ok := s.otps[id]
	if !ok {
		t.Fatalf("otp %s not stored", id)
	}
	return otp
}

func TestSendOTP_Cooldown(t *testing.T) {
	_, svc := newAuthTestEnv(t, &fakeCache{limited: map[string]bool{}})
	ctx := context.Background()

	if _, err := svc.SendOTP(ctx, testMobile); err != nil {
		t.Fatalf("first SendOTP: %v", err)
	}
	if _, err := svc.SendOTP(ctx, testMobile); !errors.Is(err, service.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestSendOTP_FiveDigitCode(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)

	otp, err := svc.SendOTP(context.Background(), testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	stored := issuedOTP(t, s, otp.ID)
	if len(stored.Code) != 5 {
		t.Fatalf("code must be 5 digits, got %q", stored.Code)
	}
	for _, r := range stored.Code {
		if r < '0' || r > '9' {
			t.Fatalf("code must be numeric, got %q", stored.Code)
		}
	}
}

func TestRegisterUserByOTP(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	otp, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}

	user, err := svc.RegisterUserByOTP(ctx, otp.ID, issuedOTP(t, s, otp.ID).Code)
	if err != nil {
		t.Fatalf("RegisterUserByOTP: %v", err)
	}
	if user.Username != testMobile || user.Role != models.RoleCustomer {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Password != "" {
		t.Fatal("otp-created account must have an unusable password")
	}

	// Повторная регистрация тем же номером возвращает существующий аккаунт
	otp2, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	again, err := svc.RegisterUserByOTP(ctx, otp2.ID, issuedOTP(t, s, otp2.ID).Code)
	if err != nil {
		t.Fatalf("repeat RegisterUserByOTP: %v", err)
	}
	if again.ID != user.ID {
		t.Fatal("existing account must be reused, not duplicated")
	}
}

func TestUseOTP_CheckOrder(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	otp, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	code := issuedOTP(t, s, otp.ID).Code

	// Неверный код
	if _, err := svc.RegisterUserByOTP(ctx, otp.ID, "00000x"); !errors.Is(err, service.ErrOTPInvalid) {
		t.Fatalf("wrong code: expected ErrOTPInvalid, got %v", err)
	}
	// Неизвестный otp_id
	if _, err := svc.RegisterUserByOTP(ctx, uuid.New(), code); !errors.Is(err, service.ErrOTPInvalid) {
		t.Fatalf("unknown id: expected ErrOTPInvalid, got %v", err)
	}

	// Истёкший код
	stale := s.otps[otp.ID]
	stale.CreatedAt = time.Now().Add(-models.OTPExpiration - time.Minute)
	s.otps[otp.ID] = stale
	if _, err := svc.RegisterUserByOTP(ctx, otp.ID, code); !errors.Is(err, service.ErrOTPExpired) {
		t.Fatalf("expired: expected ErrOTPExpired, got %v", err)
	}

	// Погашенный код
	fresh := s.otps[otp.ID]
	fresh.CreatedAt = time.Now()
	fresh.IsUsed = true
	s.otps[otp.ID] = fresh
	if _, err := svc.RegisterUserByOTP(ctx, otp.ID, code); !errors.Is(err, service.ErrOTPUsed) {
		t.Fatalf("used: expected ErrOTPUsed, got %v", err)
	}
}

func TestGetUserByOTP(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	// Нет аккаунта под номером
	otp, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if _, err := svc.GetUserByOTP(ctx, otp.ID, issuedOTP(t, s, otp.ID).Code); !errors.Is(err, service.ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}

	user, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123")
	if err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}

	otp2, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	got, err := svc.GetUserByOTP(ctx, otp2.ID, issuedOTP(t, s, otp2.ID).Code)
	if err != nil {
		t.Fatalf("GetUserByOTP: %v", err)
	}
	if got.ID != user.ID {
		t.Fatal("wrong account returned")
	}

	// Деактивированный аккаунт не входит даже с верным кодом
	u := s.users[user.ID]
	u.IsActive = false
	s.users[user.ID] = u

	otp3, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if _, err := svc.GetUserByOTP(ctx, otp3.ID, issuedOTP(t, s, otp3.ID).Code); !errors.Is(err, service.ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestRegisterUserByPassword_Duplicate(t *testing.T) {
	_, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	if _, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123"); err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}
	if _, err := svc.RegisterUserByPassword(ctx, testMobile, "other456"); !errors.Is(err, service.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestSignInPassword(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	user, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123")
	if err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}

	if _, err := svc.SignInPassword(ctx, testMobile, "secret123"); err != nil {
		t.Fatalf("SignInPassword: %v", err)
	}
	if _, err := svc.SignInPassword(ctx, testMobile, "wrong"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignInPassword(ctx, "09999999999", "secret123"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("unknown mobile: expected ErrInvalidCredentials, got %v", err)
	}

	u := s.users[user.ID]
	u.IsActive = false
	s.users[user.ID] = u
	if _, err := svc.SignInPassword(ctx, testMobile, "secret123"); !errors.Is(err, service.ErrInactiveUser) {
		t.Fatalf("inactive: expected ErrInactiveUser, got %v", err)
	}
}

func TestSignInPassword_OTPOnlyAccount(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	otp, err := svc.SendOTP(ctx, testMobile)
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if _, err := svc.RegisterUserByOTP(ctx, otp.ID, issuedOTP(t, s, otp.ID).Code); err != nil {
		t.Fatalf("RegisterUserByOTP: %v", err)
	}

	// Непригодный пароль не проходит ни с каким вводом, включая пустой
	if _, err := svc.SignInPassword(ctx, testMobile, ""); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInMobileStep1_DecoyForUnknown(t *testing.T) {
	s, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	otpID, err := svc.SignInMobileStep1(ctx, "09999999999")
	if err != nil {
		t.Fatalf("SignInMobileStep1: %v", err)
	}
	if otpID == uuid.Nil {
		t.Fatal("decoy otp_id must look like a real one")
	}
	if len(s.otps) != 0 {
		t.Fatal("no OTP row must be issued for an unknown mobile")
	}

	if _, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123"); err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}
	realID, err := svc.SignInMobileStep1(ctx, testMobile)
	if err != nil {
		t.Fatalf("SignInMobileStep1: %v", err)
	}
	if _, ok := s.otps[realID]; !ok {
		t.Fatal("known mobile must get a real OTP")
	}
}

func TestRefreshRotation(t *testing.T) {
	_, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	user, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123")
	if err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}

	pair, err := svc.IssueTokens(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	rotated, err := svc.Refresh(ctx, pair.RefreshOpaque)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshOpaque == pair.RefreshOpaque {
		t.Fatal("refresh must rotate the opaque token")
	}

	// Старый refresh отозван ротацией
	if _, err := svc.Refresh(ctx, pair.RefreshOpaque); !errors.Is(err, service.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	_, svc := newAuthTestEnv(t, nil)
	ctx := context.Background()

	user, err := svc.RegisterUserByPassword(ctx, testMobile, "secret123")
	if err != nil {
		t.Fatalf("RegisterUserByPassword: %v", err)
	}
	pair, err := svc.IssueTokens(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	if err := svc.Logout(ctx, pair.RefreshOpaque); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, pair.RefreshOpaque); !errors.Is(err, service.ErrTokenNotFoundOrRevoked) {
		t.Fatalf("second logout: expected ErrTokenNotFoundOrRevoked, got %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshOpaque); !errors.Is(err, service.ErrTokenExpired) {
		t.Fatalf("refresh after logout: expected ErrTokenExpired, got %v", err)
	}
}
