package dto

// BaseError универсальный корневой формат ошибки
// Code — машинно-ориентированный код (snake_case)
// Message — краткое человеко-читаемое описание
// Details — дополнительная строка (пояснение)
// Fields — для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// Семантические алиасы для swagger-аннотаций: JSON-формат один и тот же.

// ValidationErrorResponse 400
type ValidationErrorResponse BaseError

// UnauthorizedErrorResponse 401
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404
type NotFoundErrorResponse BaseError

// ConflictErrorResponse 409
type ConflictErrorResponse BaseError

// RateLimitedErrorResponse 429
type RateLimitedErrorResponse BaseError

// InternalErrorResponse 500
type InternalErrorResponse BaseError

func NewValidationError(message string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse{Code: "validation_error", Message: message, Fields: fields}
}

func NewUnauthorizedError(message string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse{Code: "unauthorized", Message: message}
}

func NewForbiddenError(message string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse{Code: "forbidden", Message: message}
}

func NewNotFoundError(message string) NotFoundErrorResponse {
	return NotFoundErrorResponse{Code: "not_found", Message: message}
}

func NewConflictError(message string) ConflictErrorResponse {
	return ConflictErrorResponse{Code: "conflict", Message: message}
}

func NewRateLimitedError(message string) RateLimitedErrorResponse {
	return RateLimitedErrorResponse{Code: "rate_limited", Message: message}
}

func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse{Code: "internal_error", Message: "internal server error", Details: details}
}
