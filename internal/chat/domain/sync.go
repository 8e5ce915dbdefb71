package domain

// ReadSyncState per-room-mount read receipt state
type ReadSyncState int

const (
	// ReadUnsynced the backlog of the room has not been bulk marked yet
	ReadUnsynced ReadSyncState = iota
	// ReadSynced the backlog is clear, only deltas are marked
	ReadSynced
)

func (s ReadSyncState) String() string {
	if s == ReadSynced {
		return "synced"
	}
	return "unsynced"
}

// FirstContactPhase progress of starting a conversation that had no room yet
type FirstContactPhase int

const (
	// PhaseNotStarted room not created
	PhaseNotStarted FirstContactPhase = iota
	// PhaseRoomCreated room exists, pending system message not persisted
	PhaseRoomCreated
	// PhaseMessageSent nothing pending
	PhaseMessageSent
)

func (p FirstContactPhase) String() string {
	switch p {
	case PhaseRoomCreated:
		return "room_created"
	case PhaseMessageSent:
		return "message_sent"
	default:
		return "not_started"
	}
}
