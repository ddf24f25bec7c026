package dashboard

import "errors"

var (
	// ErrMissingCredential is returned when no bearer credential is available;
	// no backend request is attempted without one.
	ErrMissingCredential = errors.New("dashboard: bearer credential is required")
	// ErrValidation wraps payloads rejected before they reach the backend.
	ErrValidation = errors.New("dashboard: validation failed")
	// ErrUnknownDashboard is returned when no session is mounted for an id.
	ErrUnknownDashboard = errors.New("dashboard: unknown dashboard")

	errMissingDashboardID = errors.New("dashboard: dashboard id is required")
	errMissingSaver       = errors.New("dashboard: layout saver not configured")
	errSessionClosed      = errors.New("dashboard: session closed")
	errNothingToRetry     = errors.New("dashboard: no layout recorded for retry")
	errDuplicateSession   = errors.New("dashboard: session already mounted")
)
