package webhook

import "errors"

var (
	ErrClientIPUnresolvable = errors.New("client ip unresolvable")
	ErrForbidden            = errors.New("forbidden")
	ErrMalformedPayload     = errors.New("malformed payload")
)
