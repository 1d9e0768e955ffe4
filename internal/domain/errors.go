// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidDay is returned when a calendar day is not in YYYY-MM-DD form.
	ErrInvalidDay = errors.New("invalid calendar day")

	// ErrDeliveryDisabled is returned by a notifier that does not deliver
	// alerts. Such alerts are not recorded as sent.
	ErrDeliveryDisabled = errors.New("alert delivery disabled")
)
