package appraisal

import "errors"

// Sentinel kinds for appraisal errors.
var (
	ErrInvalidPeriod = errors.New("invalid period")
)
