package entity

type AlignmentState string

const (
	AlignmentNoFace        AlignmentState = "NO_FACE"
	AlignmentOutOfPosition AlignmentState = "OUT_OF_POSITION"
	AlignmentUnstable      AlignmentState = "UNSTABLE"
	AlignmentAligned       AlignmentState = "ALIGNED"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AlignmentStatus is recomputed every frame; Message always carries the
// single most relevant reason alignment is failing.
type AlignmentStatus struct {
	Aligned    bool               `json:"aligned"`
	State      AlignmentState     `json:"state"`
	Message    string             `json:"message"`
	FaceCenter *Position          `json:"face_center,omitempty"`
	FaceWidth  *float64           `json:"face_width,omitempty"`
	Deviations map[string]float64 `json:"deviations,omitempty"`
}
