package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/util"

	"github.com/google/uuid"
	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const otpCooldown = time.Minute

type AuthService struct {
	repo     *repository.Repository
	hasher   PasswordHasher
	tokens   TokenProvider
	cache    CacheClient // может быть nil
	notifier SMSNotifier // может быть nil

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	log *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	hasher PasswordHasher,
	tokens TokenProvider,
	cache CacheClient,
	notifier SMSNotifier,
	accessTTL, refreshTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		cache:    cache,
		notifier: notifier,

		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		log:        log,
	}
}

// SendOTP выпускает пятизначный код для destination и публикует уведомление
// для внешней доставки. Повторный запрос в течение минуты отбивается, если
// настроен кэш.
func (s *AuthService) SendOTP(ctx context.Context, destination string) (*models.OTP, error) {
	destination = strings.TrimSpace(destination)

	if s.cache != nil {
		key := "otp:" + destination
		limited, err := s.cache.CheckRateLimit(ctx, key)
		if err != nil {
			s.log.Warn("Проверка кулдауна OTP не удалась", zap.Error(err))
		} else if limited {
			return nil, ErrTooManyRequests
		}
		if err := s.cache.SetRateLimit(ctx, key, otpCooldown); err != nil {
			s.log.Warn("Не удалось выставить кулдаун OTP", zap.Error(err))
		}
	}

	code, err := nanorand.Gen(5)
	if err != nil {
		return nil, err
	}

	otp := &models.OTP{
		Code:        code,
		Destination: destination,
		Extra:       []byte("{}"),
	}
	if err := s.repo.OTPs.Create(ctx, otp); err != nil {
		return nil, err
	}

	// TODO: убрать код из лога, когда доставка переедет в notification-service
	s.log.Info("OTP отправлен",
		zap.String("destination", destination),
		zap.String("code", code),
		zap.String("otp_id", otp.ID.String()))

	if s.notifier != nil {
		if err := s.notifier.SendCode(ctx, destination, code, otp.ID); err != nil {
			s.log.Warn("Публикация SMS-уведомления не удалась", zap.Error(err))
		}
	}
	return otp, nil
}

// useOTP атомарно гасит код: лок строки, проверки, пометка is_used.
// Порядок проверок как у исходного флоу: совпадение пары → срок → повтор.
func (s *AuthService) useOTP(ctx context.Context, tx *repository.Repository, otpID uuid.UUID, code string) (*models.OTP, error) {
	otp, err := tx.OTPs.GetForUpdate(ctx, otpID, code)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, ErrOTPInvalid
	}
	if otp.IsExpired(s.now()) {
		return nil, ErrOTPExpired
	}
	if otp.IsUsed {
		return nil, ErrOTPUsed
	}
	if _, err := tx.OTPs.MarkUsed(ctx, otp.ID); err != nil {
		return nil, err
	}
	otp.IsUsed = true
	return otp, nil
}

func (s *AuthService) createCustomer(ctx context.Context, tx *repository.Repository, username, password string) (*models.User, error) {
	var hash string
	if password != "" {
		h, err := s.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		hash = h
	} // пустой hash = непригодный пароль, вход только по OTP

	u := &models.User{
		Username: username,
		Password: hash,
		Role:     models.RoleCustomer,
		IsActive: true,
	}
	if err := tx.Users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return u, nil
}

// RegisterUserByOTP гасит код и возвращает существующий аккаунт для
// destination либо создаёт нового клиента с непригодным паролем.
func (s *AuthService) RegisterUserByOTP(ctx context.Context, otpID uuid.UUID, code string) (*models.User, error) {
	var user *models.User
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		otp, err := s.useOTP(ctx, tx, otpID, code)
		if err != nil {
			return err
		}
		user, err = tx.Users.GetByUsername(ctx, otp.Destination)
		if err != nil {
			return err
		}
		if user != nil {
			return nil
		}
		user, err = s.createCustomer(ctx, tx, otp.Destination, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByOTP — вход по коду: гасит OTP и возвращает аккаунт destination.
func (s *AuthService) GetUserByOTP(ctx context.Context, otpID uuid.UUID, code string) (*models.User, error) {
	var user *models.User
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		otp, err := s.useOTP(ctx, tx, otpID, code)
		if err != nil {
			return err
		}
		user, err = tx.Users.GetByUsername(ctx, otp.Destination)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNoAccount
		}
		if !user.IsActive {
			return ErrInactiveUser
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) RegisterUserByPassword(ctx context.Context, mobile, password string) (*models.User, error) {
	exists, err := s.repo.Users.ExistsByUsername(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateAccount
	}

	var user *models.User
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		user, err = s.createCustomer(ctx, tx, mobile, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) SignInPassword(ctx context.Context, mobile, password string) (*models.User, error) {
	user, err := s.repo.Users.GetByUsername(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" || !s.hasher.Compare(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// SignInMobileStep1: настоящий OTP уходит только существующим аккаунтам;
// для неизвестного номера возвращаем случайный otp_id, чтобы по ответу
// нельзя было перебрать зарегистрированные номера.
func (s *AuthService) SignInMobileStep1(ctx context.Context, mobile string) (uuid.UUID, error) {
	exists, err := s.repo.Users.ExistsByUsername(ctx, mobile)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.New(), nil
	}
	otp, err := s.SendOTP(ctx, mobile)
	if err != nil {
		return uuid.Nil, err
	}
	return otp.ID, nil
}

func (s *AuthService) SignUpMobileStep1(ctx context.Context, mobile string) (uuid.UUID, error) {
	otp, err := s.SendOTP(ctx, mobile)
	if err != nil {
		return uuid.Nil, err
	}
	return otp.ID, nil
}

// IssueTokens выпускает пару: access JWT + opaque refresh (в БД — его хэш).
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (TokenPair, error) {
	access, aexp, err := s.tokens.SignAccess(ctx, user.ID, string(user.Role), s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	opaque, hash, rexp, err := s.tokens.NewRefresh(ctx, user.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	rt := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: rexp,
	}
	if err := s.repo.Refresh.Create(ctx, rt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  aexp,
		RefreshOpaque:    opaque,
		RefreshExpiresAt: rexp,
		RefreshHash:      hash,
	}, nil
}

// Refresh ротирует пару по opaque refresh-токену.
func (s *AuthService) Refresh(ctx context.Context, opaque string) (TokenPair, error) {
	hash := util.Sha256Base64URL(opaque)
	now := s.now()

	active, err := s.repo.Refresh.IsActiveByHash(ctx, hash, now)
	if err != nil {
		return TokenPair{}, err
	}
	if !active {
		return TokenPair{}, ErrTokenExpired
	}
	rt, err := s.repo.Refresh.GetByHash(ctx, hash)
	if err != nil {
		return TokenPair{}, err
	}
	if rt == nil {
		return TokenPair{}, ErrTokenNotFoundOrRevoked
	}

	user, err := s.repo.Users.GetByID(ctx, rt.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	if user == nil {
		return TokenPair{}, ErrUserNotFound
	}
	if !user.IsActive {
		return TokenPair{}, ErrInactiveUser
	}

	if _, err := s.repo.Refresh.RevokeByHash(ctx, hash); err != nil {
		return TokenPair{}, err
	}
	return s.IssueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, opaque string) error {
	if opaque == "" {
		return ErrTokenNotFoundOrRevoked
	}
	hash := util.Sha256Base64URL(opaque)
	ok, err := s.repo.Refresh.RevokeByHash(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFoundOrRevoked
	}
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
