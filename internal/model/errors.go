package model

import "errors"

var (
	ErrNotAuthenticated = errors.New("no access token stored")
	ErrUploadNotFound   = errors.New("upload record not found")
	ErrSettingNotFound  = errors.New("setting not found")
	ErrPremiumRequired  = errors.New("premium license required")
	ErrInvalidInput     = errors.New("invalid input")
)
