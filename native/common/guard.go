package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named native module is administratively halted.
// Hosts wire their own implementation; a nil view never pauses.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
