package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNoEligibleSender = errors.New("no eligible sender account")
	ErrTenantPaused     = errors.New("tenant is paused")
	ErrQuietHours       = errors.New("inside tenant quiet hours")
	ErrNotAuthorized    = errors.New("stored session is not authorized")
	ErrUnreachable      = errors.New("telegram network setup failed")
	ErrVendorBalance    = errors.New("sms vendor balance below minimum")
	ErrConflict         = errors.New("concurrent update conflict")
)
