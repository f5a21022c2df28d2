package models

// RegisterRequest creates a new account. Registration shares the captcha
// requirement with login so both entry points cost a human check.
type RegisterRequest struct {
	Phone         string `json:"phone" validate:"required,phone"`
	Nickname      string `json:"nickname" validate:"required,notblank,max=30"`
	Password      string `json:"password" validate:"required,min=6,max=64"`
	CaptchaHandle string `json:"captcha_handle" validate:"required"`
	CaptchaCode   string `json:"captcha_code" validate:"required"`
}

// LoginRequest authenticates by phone and password, gated on a captcha.
type LoginRequest struct {
	Phone         string `json:"phone" validate:"required,phone"`
	Password      string `json:"password" validate:"required"`
	CaptchaHandle string `json:"captcha_handle" validate:"required"`
	CaptchaCode   string `json:"captcha_code" validate:"required"`
}

// ChangePasswordRequest rotates the password for the authenticated user.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=64"`
}
