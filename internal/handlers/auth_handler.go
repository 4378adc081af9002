package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/dto"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Локальный формат номера: 09 и девять цифр.
var mobileRe = regexp.MustCompile(`^09\d{9}$`)

type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func toTokenPairResponse(tp service.TokenPair) dto.TokenPairResponse {
	return dto.TokenPairResponse{
		AccessToken:      tp.AccessToken,
		RefreshToken:     tp.RefreshOpaque,
		AccessExpiresIn:  int64(time.Until(tp.AccessExpiresAt).Seconds()),
		RefreshExpiresIn: int64(time.Until(tp.RefreshExpiresAt).Seconds()),
	}
}

func toUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func invalidMobile(c *gin.Context, mobile string) bool {
	if mobileRe.MatchString(mobile) {
		return false
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{
		{Field: "mobile", Message: "mobile must match 09xxxxxxxxx", Tag: "format"},
	}))
	return true
}

// SignUpPassword godoc
// @Summary Регистрация по паролю
// @Description Создаёт пользователя CUSTOMER по номеру и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param sign-up body dto.PasswordSignUpRequest true "Номер и пароль"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 409 {object} dto.ConflictErrorResponse "Номер уже зарегистрирован"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-up/password [post]
func (h *AuthHandler) SignUpPassword(c *gin.Context) {
	var req dto.PasswordSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid sign-up request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	if invalidMobile(c, req.Mobile) {
		return
	}

	user, err := h.auth.RegisterUserByPassword(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAccount) {
			c.JSON(http.StatusConflict, dto.NewConflictError("mobile is already registered"))
			return
		}
		h.log.Error("Sign-up failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// SignInPassword godoc
// @Summary Вход по паролю
// @Description Проверяет пароль и выдаёт пару токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param sign-in body dto.PasswordSignInRequest true "Номер и пароль"
// @Success 200 {object} dto.TokenPairResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неверные учётные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Аккаунт деактивирован"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-in/password [post]
func (h *AuthHandler) SignInPassword(c *gin.Context) {
	var req dto.PasswordSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid sign-in request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	if invalidMobile(c, req.Mobile) {
		return
	}

	user, err := h.auth.SignInPassword(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid mobile or password"))
		case errors.Is(err, service.ErrInactiveUser):
			c.JSON(http.StatusForbidden, dto.NewForbiddenError("account is deactivated"))
		default:
			h.log.Error("Sign-in failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		}
		return
	}

	pair, err := h.auth.IssueTokens(c.Request.Context(), user)
	if err != nil {
		h.log.Error("Token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// SignUpMobileStep1 godoc
// @Summary Регистрация: шаг 1 (отправка кода)
// @Description Отправляет одноразовый код на номер и возвращает otp_id
// @Tags auth
// @Accept json
// @Produce json
// @Param step1 body dto.MobileStep1Request true "Номер телефона"
// @Success 200 {object} dto.MobileStep1Response
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 429 {object} dto.RateLimitedErrorResponse "Слишком часто"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-up/mobile/step1 [post]
func (h *AuthHandler) SignUpMobileStep1(c *gin.Context) {
	h.mobileStep1(c, h.auth.SignUpMobileStep1)
}

// SignInMobileStep1 godoc
// @Summary Вход: шаг 1 (отправка кода)
// @Description Отправляет одноразовый код на номер и возвращает otp_id.
// Ответ одинаков для известных и неизвестных номеров.
// @Tags auth
// @Accept json
// @Produce json
// @Param step1 body dto.MobileStep1Request true "Номер телефона"
// @Success 200 {object} dto.MobileStep1Response
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 429 {object} dto.RateLimitedErrorResponse "Слишком часто"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-in/mobile/step1 [post]
func (h *AuthHandler) SignInMobileStep1(c *gin.Context) {
	h.mobileStep1(c, h.auth.SignInMobileStep1)
}

func (h *AuthHandler) mobileStep1(c *gin.Context, step func(ctx context.Context, mobile string) (uuid.UUID, error)) {
	var req dto.MobileStep1Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid step1 request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	if invalidMobile(c, req.Mobile) {
		return
	}

	otpID, err := step(c.Request.Context(), req.Mobile)
	if err != nil {
		if errors.Is(err, service.ErrTooManyRequests) {
			c.JSON(http.StatusTooManyRequests, dto.NewRateLimitedError("code already sent, retry later"))
			return
		}
		h.log.Error("OTP issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, dto.MobileStep1Response{OTPID: otpID.String()})
}

// SignUpOTPStep2 godoc
// @Summary Регистрация: шаг 2 (проверка кода)
// @Description Гасит код, создаёт аккаунт при отсутствии и выдаёт токены
// @Tags auth
// @Accept json
// @Produce json
// @Param step2 body dto.OTPStep2Request true "otp_id и код"
// @Success 200 {object} dto.TokenPairResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Код не прошёл проверку"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Аккаунт деактивирован"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-up/otp/step2 [post]
func (h *AuthHandler) SignUpOTPStep2(c *gin.Context) {
	req, otpID, ok := h.bindStep2(c)
	if !ok {
		return
	}

	user, err := h.auth.RegisterUserByOTP(c.Request.Context(), otpID, req.Code)
	if err != nil {
		h.respondOTPError(c, err)
		return
	}
	h.issueAndRespond(c, user)
}

// SignInOTPStep2 godoc
// @Summary Вход: шаг 2 (проверка кода)
// @Description Гасит код и выдаёт токены существующему пользователю
// @Tags auth
// @Accept json
// @Produce json
// @Param step2 body dto.OTPStep2Request true "otp_id и код"
// @Success 200 {object} dto.TokenPairResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Код не прошёл проверку"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Аккаунт деактивирован"
// @Failure 404 {object} dto.NotFoundErrorResponse "Аккаунта с этим номером нет"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/sign-in/otp/step2 [post]
func (h *AuthHandler) SignInOTPStep2(c *gin.Context) {
	req, otpID, ok := h.bindStep2(c)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByOTP(c.Request.Context(), otpID, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrNoAccount) {
			c.JSON(http.StatusNotFound, dto.NewNotFoundError("no account for this mobile"))
			return
		}
		h.respondOTPError(c, err)
		return
	}
	h.issueAndRespond(c, user)
}

func (h *AuthHandler) bindStep2(c *gin.Context) (dto.OTPStep2Request, uuid.UUID, bool) {
	var req dto.OTPStep2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid step2 request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return req, uuid.Nil, false
	}
	otpID, err := uuid.Parse(req.OTPID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{
			{Field: "otp_id", Message: "must be a UUID", Tag: "uuid"},
		}))
		return req, uuid.Nil, false
	}
	return req, otpID, true
}

func (h *AuthHandler) respondOTPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOTPInvalid):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("otp is invalid", nil))
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("otp is expired", nil))
	case errors.Is(err, service.ErrOTPUsed):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("otp already used", nil))
	case errors.Is(err, service.ErrInactiveUser):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("account is deactivated"))
	default:
		h.log.Error("OTP verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func (h *AuthHandler) issueAndRespond(c *gin.Context, user *models.User) {
	pair, err := h.auth.IssueTokens(c.Request.Context(), user)
	if err != nil {
		h.log.Error("Token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Refresh godoc
// @Summary Обновление токенов
// @Description Гасит refresh-токен и выдаёт новую пару
// @Tags auth
// @Accept json
// @Produce json
// @Param refresh body dto.RefreshRequest true "Refresh-токен"
// @Success 200 {object} dto.TokenPairResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Токен истёк или отозван"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/refresh-jwt [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrTokenNotFoundOrRevoked):
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("refresh token expired or revoked"))
		case errors.Is(err, service.ErrInactiveUser):
			c.JSON(http.StatusForbidden, dto.NewForbiddenError("account is deactivated"))
		default:
			h.log.Error("Refresh failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		}
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Logout godoc
// @Summary Выход
// @Description Отзывает refresh-токен
// @Tags auth
// @Accept json
// @Produce json
// @Param logout body dto.LogoutRequest true "Refresh-токен"
// @Success 204 "Токен отозван"
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Токен не найден или уже отозван"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.Refresh); err != nil {
		if errors.Is(err, service.ErrTokenNotFoundOrRevoked) {
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("refresh token not found or already revoked"))
			return
		}
		h.log.Error("Logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary Текущий пользователь
// @Description Возвращает профиль владельца access-токена
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет или невалидный токен"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/users/i [get]
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := service.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
			return
		}
		h.log.Error("Get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
