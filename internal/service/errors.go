package service

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyItems    = errors.New("empty items")

	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is inactive")
	ErrProductInOrders = errors.New("product is referenced by orders")
	ErrDuplicateName   = errors.New("product name already exists")

	ErrOTPInvalid = errors.New("otp is invalid")
	ErrOTPExpired = errors.New("otp is expired")
	ErrOTPUsed    = errors.New("otp already used")

	ErrNoAccount          = errors.New("no account for this mobile")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrDuplicateAccount   = errors.New("this mobile is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyRequests    = errors.New("too many requests")

	ErrTokenExpired           = errors.New("token expired")
	ErrTokenNotFoundOrRevoked = errors.New("refresh token not found or already revoked")
	ErrUserNotFound           = errors.New("user not found")
)
