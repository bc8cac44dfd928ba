package entity

import "time"

// PupilMeasurement is a single PD estimate. Pupils and PDPixels share the
// coordinate space of the landmarks they were computed from.
type PupilMeasurement struct {
	LeftPupil  Point   `json:"left_pupil"`
	RightPupil Point   `json:"right_pupil"`
	PDPixels   float64 `json:"pd_pixels"`
	PDMM       float64 `json:"pd_mm"`
	Confidence float64 `json:"confidence"`
}

// MeasurementRecord is a completed aggregation cycle as kept in history.
type MeasurementRecord struct {
	ID         string
	SessionID  string
	Mode       SessionMode
	PDMM       float64
	PDPixels   float64
	Confidence float64
	LeftPupil  Point
	RightPupil Point
	FrameCount int
	MeasuredAt time.Time
}

// FrameResult is what one processed frame produced for a session.
type FrameResult struct {
	SessionID    string
	Alignment    AlignmentStatus
	Candidate    *PupilMeasurement
	Final        *PupilMeasurement
	State        string
	StableFrames int
	Buffered     int
	// SkipReason is set when the frame was dropped from measurement.
	SkipReason error
}
