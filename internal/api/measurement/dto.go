package measurement

import (
	"PupilMeter/internal/entity"
	"math"
	"time"
)

type StartSessionRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=auto manual"`
}

type LandmarkPoint struct {
	Index      int      `json:"index" validate:"gte=0"`
	X          *float64 `json:"x" validate:"required"`
	Y          *float64 `json:"y" validate:"required"`
	Z          float64  `json:"z"`
	Visibility float64  `json:"visibility"`
}

// FrameRequest carries one frame of normalized landmarks. An empty landmark
// list reports that no face was found in the frame.
type FrameRequest struct {
	Width     int             `json:"width" validate:"required,gt=0,lte=10000"`
	Height    int             `json:"height" validate:"required,gt=0,lte=10000"`
	Landmarks []LandmarkPoint `json:"landmarks" validate:"dive"`
}

func (r FrameRequest) ToEntity() entity.Frame {
	set := make(entity.LandmarkSet, len(r.Landmarks))
	for _, lm := range r.Landmarks {
		set[lm.Index] = entity.Landmark{
			X:          *lm.X,
			Y:          *lm.Y,
			Z:          lm.Z,
			Visibility: lm.Visibility,
		}
	}
	return entity.Frame{
		Landmarks: set,
		Width:     r.Width,
		Height:    r.Height,
	}
}

type AlignmentResponse struct {
	Aligned    bool               `json:"aligned"`
	State      string             `json:"state"`
	Message    string             `json:"message"`
	FaceCenter *entity.Position   `json:"face_center,omitempty"`
	FaceWidth  *float64           `json:"face_width,omitempty"`
	Deviations map[string]float64 `json:"deviations,omitempty"`
}

type MeasurementResponse struct {
	PDMM       float64      `json:"pd_mm"`
	PDPixels   float64      `json:"pd_pixels"`
	Confidence float64      `json:"confidence"`
	LeftPupil  entity.Point `json:"left_pupil"`
	RightPupil entity.Point `json:"right_pupil"`
}

type FrameResponse struct {
	SessionID    string               `json:"session_id"`
	Alignment    AlignmentResponse    `json:"alignment"`
	State        string               `json:"state"`
	StableFrames int                  `json:"stable_frames"`
	Buffered     int                  `json:"buffered_frames"`
	Candidate    *MeasurementResponse `json:"candidate,omitempty"`
	Final        *MeasurementResponse `json:"final,omitempty"`
	Skipped      string               `json:"skipped,omitempty"`
}

type SessionResponse struct {
	ID             string               `json:"id"`
	Mode           string               `json:"mode"`
	State          string               `json:"state"`
	Alignment      AlignmentResponse    `json:"alignment"`
	StableFrames   int                  `json:"stable_frames"`
	BufferedFrames int                  `json:"buffered_frames"`
	Completed      int                  `json:"completed"`
	Measurement    *MeasurementResponse `json:"measurement,omitempty"`
	CreatedAt      string               `json:"created_at"`
	LastSeenAt     string               `json:"last_seen_at"`
}

type HistoryItemResponse struct {
	ID          string              `json:"id"`
	Mode        string              `json:"mode"`
	FrameCount  int                 `json:"frame_count"`
	MeasuredAt  string              `json:"measured_at"`
	Measurement MeasurementResponse `json:"measurement"`
}

type HistoryResponse struct {
	SessionID    string                `json:"session_id"`
	Measurements []HistoryItemResponse `json:"measurements"`
}

func NewAlignmentResponse(a entity.AlignmentStatus) AlignmentResponse {
	return AlignmentResponse{
		Aligned:    a.Aligned,
		State:      string(a.State),
		Message:    a.Message,
		FaceCenter: a.FaceCenter,
		FaceWidth:  a.FaceWidth,
		Deviations: a.Deviations,
	}
}

// NewMeasurementResponse rounds PD to 0.1 mm and confidence to two decimals
// for display. Pixel values are passed through unchanged.
func NewMeasurementResponse(m *entity.PupilMeasurement) *MeasurementResponse {
	if m == nil {
		return nil
	}
	return &MeasurementResponse{
		PDMM:       math.Round(m.PDMM*10) / 10,
		PDPixels:   m.PDPixels,
		Confidence: math.Round(m.Confidence*100) / 100,
		LeftPupil:  m.LeftPupil,
		RightPupil: m.RightPupil,
	}
}

func NewFrameResponse(r *entity.FrameResult) FrameResponse {
	resp := FrameResponse{
		SessionID:    r.SessionID,
		Alignment:    NewAlignmentResponse(r.Alignment),
		State:        r.State,
		StableFrames: r.StableFrames,
		Buffered:     r.Buffered,
		Candidate:    NewMeasurementResponse(r.Candidate),
		Final:        NewMeasurementResponse(r.Final),
	}
	if r.SkipReason != nil {
		resp.Skipped = r.SkipReason.Error()
	}
	return resp
}

func NewSessionResponse(s *entity.SessionSnapshot) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		Mode:           string(s.Mode),
		State:          s.State,
		Alignment:      NewAlignmentResponse(s.Alignment),
		StableFrames:   s.StableFrames,
		BufferedFrames: s.BufferedFrames,
		Completed:      s.Completed,
		Measurement:    NewMeasurementResponse(s.LastMeasurement),
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		LastSeenAt:     s.LastSeenAt.Format(time.RFC3339),
	}
}

func NewHistoryItemResponse(r entity.MeasurementRecord) HistoryItemResponse {
	m := entity.PupilMeasurement{
		LeftPupil:  r.LeftPupil,
		RightPupil: r.RightPupil,
		PDPixels:   r.PDPixels,
		PDMM:       r.PDMM,
		Confidence: r.Confidence,
	}
	return HistoryItemResponse{
		ID:          r.ID,
		Mode:        string(r.Mode),
		FrameCount:  r.FrameCount,
		MeasuredAt:  r.MeasuredAt.Format(time.RFC3339),
		Measurement: *NewMeasurementResponse(&m),
	}
}
