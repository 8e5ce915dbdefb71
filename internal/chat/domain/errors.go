package domain

import "errors"

var (
	// ErrRoomNotFound room document not exist
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotParticipant the user is not part of the room
	ErrNotParticipant = errors.New("not a participant of the room")
	// ErrEmptyMessage message without body or image
	ErrEmptyMessage = errors.New("empty message")
	// ErrInvalidPair a room needs two distinct participants
	ErrInvalidPair = errors.New("room needs two distinct participants")
	// ErrPeerMismatch the room id is not the pair room of the given peer
	ErrPeerMismatch = errors.New("room does not match peer")
	// ErrNoActiveRoom the session has no room open
	ErrNoActiveRoom = errors.New("no active room")
	// ErrUserNotFound user document not exist
	ErrUserNotFound = errors.New("user not found")
)
