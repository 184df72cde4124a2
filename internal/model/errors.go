package model

import "errors"

var (
	// ErrRoomNotFound is returned when a room id does not resolve to a live room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrImageRequired is returned when an analysis request carries no image data.
	ErrImageRequired = errors.New("no image data provided")
)
