package common

import (
	"errors"
	"fmt"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// PausedError names the module whose pause flag blocked the call.
type PausedError struct {
	Module string
}

func (e *PausedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrModulePaused, e.Module)
}

func (e *PausedError) Unwrap() error { return ErrModulePaused }

// Guard returns a *PausedError for the first paused module in the list.
func Guard(p PauseView, modules ...string) error {
	if p == nil {
		return nil
	}
	for _, module := range modules {
		if module == "" {
			continue
		}
		if p.IsPaused(module) {
			return &PausedError{Module: module}
		}
	}
	return nil
}
