package appkit

import (
	"errors"
)

// Application errors
var (
	// Lifecycle errors
	ErrNotImplemented   = errors.New("phase not implemented")
	ErrInvalidBlueprint = errors.New("invalid application blueprint")
	ErrNilBlueprint     = errors.New("application blueprint is nil")
	ErrHookFailed       = errors.New("extension hook failed")

	// Misuse errors. These are raised with panic.
	ErrRegistrationClosed = errors.New("extension registration is closed after create")
	ErrNilExtension       = errors.New("extension is nil")
	ErrDuplicateExtension = errors.New("extension is already registered")
	ErrAlreadyStarted     = errors.New("application main already started")
	ErrNoCreateHook       = errors.New("hooks cannot be bound to the create phase")
	ErrUnknownPhase       = errors.New("unknown lifecycle phase")
)
