package manifest

import "errors"

var (
	// ErrManifestNotFound is returned when no manifest exists for a site and date.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrInvalidPushStatus is returned for an unknown push status value.
	ErrInvalidPushStatus = errors.New("invalid push status")
)
