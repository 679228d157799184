package frameloop

import "errors"

var (
	ErrAlreadyStarted = errors.New("frame loop already started")
	ErrInvalidSetting = errors.New("invalid setting")
	ErrNoFrame        = errors.New("no frame rendered yet")
)
