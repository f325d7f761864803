package goOTP

import "errors"

var (
	// ErrInvalidIdentity is returned when the identity is empty after trimming.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidCategory is returned for a category outside the closed enum.
	ErrInvalidCategory = errors.New("invalid otp category")
	// ErrLockedOut is returned by issuance while the identity is locked.
	ErrLockedOut = errors.New("identity locked out")
	// ErrBackendUnavailable wraps entry store and attempt tracker failures.
	ErrBackendUnavailable = errors.New("otp backend unavailable")
	// ErrCodeGeneration wraps failures of the random source.
	ErrCodeGeneration = errors.New("otp generation failed")
	ErrEngineNotReady = errors.New("engine not initialized")
	ErrEngineClosed   = errors.New("engine closed")
)
