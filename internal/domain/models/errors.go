package models

import "errors"

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamEmpty       = errors.New("upstream returned no usable data")
	ErrRateLimited         = errors.New("rate limited by upstream")
	ErrGenerationExhausted = errors.New("all generation backends failed")
	ErrAlreadyExists       = errors.New("record already exists")
	ErrNotReady            = errors.New("dashboard not built yet, build the dashboard first")
	ErrInvalidSection      = errors.New("invalid section")
	ErrInvalidDate         = errors.New("invalid date")

	ErrPreferencesMissing = errors.New("onboarding required")
	ErrPreferencesExist   = errors.New("onboarding already completed")
	ErrInvalidPreferences = errors.New("invalid preferences")
)
