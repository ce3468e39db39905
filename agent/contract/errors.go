package contract

import "errors"

var (
	ErrUnderstand      = errors.New("understanding failed")
	ErrGenerate        = errors.New("reply generation failed")
	ErrBookingFailed   = errors.New("booking request failed")
	ErrValidation      = errors.New("validation failed")
	ErrScriptExhausted = errors.New("scripted transcript exhausted")
)
