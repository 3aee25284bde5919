package apperr

import "errors"

var (
	ErrVaultNotFound = errors.New("vault not found")
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidPort   = errors.New("invalid port")
	ErrUnsafeOutput  = errors.New("unsafe output directory")
	ErrAddressInUse  = errors.New("address already in use")
)
