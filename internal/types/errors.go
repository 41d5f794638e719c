package types

import "errors"

var (
	// ErrMissingCredential is returned by a service constructor when a required
	// API key or password is not configured. The owning feature is disabled.
	ErrMissingCredential = errors.New("missing credential")

	// ErrProviderUnavailable marks a failed call to an external provider, as
	// opposed to a provider that answered with no results.
	ErrProviderUnavailable = errors.New("provider unavailable")

	ErrItineraryExists         = errors.New("itinerary already exists")
	ErrPlaceAlreadyInItinerary = errors.New("place already in itinerary")
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrFeatureDisabled         = errors.New("feature disabled")
)
