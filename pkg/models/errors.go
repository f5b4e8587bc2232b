package models

import "errors"

// Provider failures shared by every vision integration.
var (
	ErrProviderUnavailable = errors.New("vision provider unavailable")
	ErrProviderRejected    = errors.New("vision provider rejected request")
	ErrInferenceTimeout    = errors.New("vision inference timeout")
	ErrInvalidResponse     = errors.New("vision provider returned invalid response")
)
