package repository

import "errors"

var (
	// ErrParentNotFound is returned when a reply references a missing message.
	ErrParentNotFound = errors.New("parent message not found")
	// ErrParentTargetMismatch is returned when a reply targets a different timeline than its parent.
	ErrParentTargetMismatch = errors.New("parent message belongs to a different timeline")
	// ErrToggleContended is returned when a reaction toggle keeps losing races.
	ErrToggleContended = errors.New("reaction toggle contended")
)
