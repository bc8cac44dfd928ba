package entity

import "time"

type SessionMode string

const (
	SessionModeAuto   SessionMode = "auto"
	SessionModeManual SessionMode = "manual"
)

var SessionModeMap = map[SessionMode]string{
	SessionModeAuto:   "Stability triggered",
	SessionModeManual: "Manual trigger",
}

func (m SessionMode) String() string {
	return SessionModeMap[m]
}

func (m SessionMode) Valid() bool {
	_, ok := SessionModeMap[m]
	return ok
}

// SessionSnapshot is a read-only view of a live measurement session.
type SessionSnapshot struct {
	ID              string
	Mode            SessionMode
	State           string
	Alignment       AlignmentStatus
	StableFrames    int
	BufferedFrames  int
	LastMeasurement *PupilMeasurement
	Completed       int
	CreatedAt       time.Time
	LastSeenAt      time.Time
}
