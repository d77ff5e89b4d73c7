package config

import "errors"

var (
	ErrInvalidTarget            = errors.New("config target must be a non-nil pointer to a struct")
	ErrSectionAlreadyRegistered = errors.New("config section already registered")
	ErrRequiredFieldMissing     = errors.New("required config field missing")
	ErrUnsupportedDefault       = errors.New("unsupported type for default value")
	ErrEmptyEnvPrefix           = errors.New("env prefix cannot be empty")
)
