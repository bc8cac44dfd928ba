package entity

// Landmark is one point from the external face landmark extractor.
// X and Y are normalized to the frame, origin top-left.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// LandmarkSet maps a landmark index to its coordinate. One set per face.
type LandmarkSet map[int]Landmark

// Scaled returns a copy of the set with X multiplied by width and Y by height.
func (s LandmarkSet) Scaled(width, height float64) LandmarkSet {
	out := make(LandmarkSet, len(s))
	for idx, lm := range s {
		out[idx] = Landmark{
			X:          lm.X * width,
			Y:          lm.Y * height,
			Z:          lm.Z,
			Visibility: lm.Visibility,
		}
	}
	return out
}

// Frame is a single landmark observation plus the pixel size of the image it
// was extracted from. An empty Landmarks means no face was detected.
type Frame struct {
	Landmarks LandmarkSet
	Width     int
	Height    int
}

func (f Frame) HasFace() bool {
	return len(f.Landmarks) > 0
}

// Pixels returns the landmarks in pixel space.
func (f Frame) Pixels() LandmarkSet {
	return f.Landmarks.Scaled(float64(f.Width), float64(f.Height))
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
