package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"famledger/pkg/validation"
)

func validRegister() *RegisterRequest {
	return &RegisterRequest{
		Phone:         "13800000000",
		Nickname:      "dad",
		Password:      "sup3r-secret",
		CaptchaHandle: "handle",
		CaptchaCode:   "AB12",
	}
}

func TestRegisterRequestValidation(t *testing.T) {
	require.NoError(t, validation.Validate(validRegister()))

	cases := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"missing phone", func(r *RegisterRequest) { r.Phone = "" }},
		{"short phone", func(r *RegisterRequest) { r.Phone = "138000" }},
		{"landline prefix", func(r *RegisterRequest) { r.Phone = "02800000000" }},
		{"blank nickname", func(r *RegisterRequest) { r.Nickname = "   " }},
		{"short password", func(r *RegisterRequest) { r.Password = "abc" }},
		{"missing captcha handle", func(r *RegisterRequest) { r.CaptchaHandle = "" }},
		{"missing captcha code", func(r *RegisterRequest) { r.CaptchaCode = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegister()
			tc.mutate(req)
			require.Error(t, validation.Validate(req))
		})
	}
}

func TestLoginRequestValidation(t *testing.T) {
	req := &LoginRequest{
		Phone:         "13800000000",
		Password:      "whatever",
		CaptchaHandle: "handle",
		CaptchaCode:   "AB12",
	}
	require.NoError(t, validation.Validate(req))

	req.Password = ""
	require.Error(t, validation.Validate(req))
}

func TestChangePasswordRequestValidation(t *testing.T) {
	req := &ChangePasswordRequest{OldPassword: "old-secret", NewPassword: "new-secret"}
	require.NoError(t, validation.Validate(req))

	req.NewPassword = "tiny"
	require.Error(t, validation.Validate(req))
}
