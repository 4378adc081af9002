package dto

// Мобильный номер — локальный формат 09121234567.

type PasswordSignUpRequest struct {
	Mobile   string `json:"mobile" binding:"required,len=11"`
	Password string `json:"password" binding:"required,min=6"`
}

type PasswordSignInRequest struct {
	Mobile   string `json:"mobile" binding:"required,len=11"`
	Password string `json:"password" binding:"required"`
}

type MobileStep1Request struct {
	Mobile string `json:"mobile" binding:"required,len=11"`
}

type MobileStep1Response struct {
	OTPID string `json:"otp_id"`
}

type OTPStep2Request struct {
	OTPID string `json:"otp_id" binding:"required,uuid"`
	Code  string `json:"code" binding:"required,max=8"`
}

type TokenPairResponse struct {
	AccessToken      string `json:"access"`
	RefreshToken     string `json:"refresh"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}
