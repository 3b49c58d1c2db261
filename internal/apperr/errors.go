// Package apperr defines the error taxonomy shared by every front door.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInputConstraint marks uploads rejected before any network call.
	ErrInputConstraint = errors.New("input constraint violation")

	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrInputConstraint)
	ErrPayloadTooLarge      = fmt.Errorf("%w: payload too large", ErrInputConstraint)

	// ErrUpstreamUnparsable is returned when the vision model answered with non-JSON text.
	ErrUpstreamUnparsable = errors.New("upstream response unparsable")
	ErrUpstream           = errors.New("upstream call failed")

	ErrValidation      = errors.New("validation failed")
	ErrMaterialization = errors.New("materialization failed")
)
