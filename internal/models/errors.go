package models

import "errors"

var (
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidFrame       = errors.New("invalid feed frame")
	ErrShortEventFields   = errors.New("feed event has too few fields")
	ErrUnknownEventType   = errors.New("unknown feed event type")
	ErrNoToken            = errors.New("no streaming token available")
	ErrInvalidLevels      = errors.New("invalid breakout levels")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
)
