// Package geometry turns a face landmark set into iris centres, a face-width
// reference and pupillary distance in pixel and millimetre units.
//
// An Extractor holds only configuration and is safe for concurrent use.
package geometry

import (
	"PupilMeter/internal/entity"
	"errors"
	"fmt"
	"math"
)

var ErrDegenerateFaceWidth = errors.New("face width must be positive")

// ErrMissingLandmark matches any MissingLandmarkError via errors.Is.
var ErrMissingLandmark = errors.New("missing landmark")

type MissingLandmarkError struct {
	Index int
}

func (e *MissingLandmarkError) Error() string {
	return fmt.Sprintf("missing landmark %d", e.Index)
}

func (e *MissingLandmarkError) Is(target error) bool {
	return target == ErrMissingLandmark
}

type Config struct {
	LeftIris             []int
	RightIris            []int
	LeftTemple           int
	RightTemple          int
	ReferenceFaceWidthMM float64
	CalibrationFactor    float64
}

// MediaPipe face mesh indices with iris refinement enabled.
func DefaultConfig() Config {
	return Config{
		LeftIris:             []int{474, 475, 476, 477},
		RightIris:            []int{469, 470, 471, 472},
		LeftTemple:           127,
		RightTemple:          356,
		ReferenceFaceWidthMM: 145.0,
		CalibrationFactor:    0.943,
	}
}

type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

func (e *Extractor) Config() Config {
	return e.cfg
}

// IrisCenter returns the centroid of the given landmark indices.
func (e *Extractor) IrisCenter(landmarks entity.LandmarkSet, indices []int) (entity.Point, error) {
	if len(indices) == 0 {
		return entity.Point{}, errors.New("no iris indices configured")
	}

	var sumX, sumY float64
	for _, idx := range indices {
		lm, ok := landmarks[idx]
		if !ok {
			return entity.Point{}, &MissingLandmarkError{Index: idx}
		}
		sumX += lm.X
		sumY += lm.Y
	}

	n := float64(len(indices))
	return entity.Point{X: sumX / n, Y: sumY / n}, nil
}

// IrisCenters returns the left and right iris centres.
func (e *Extractor) IrisCenters(landmarks entity.LandmarkSet) (entity.Point, entity.Point, error) {
	left, err := e.IrisCenter(landmarks, e.cfg.LeftIris)
	if err != nil {
		return entity.Point{}, entity.Point{}, err
	}
	right, err := e.IrisCenter(landmarks, e.cfg.RightIris)
	if err != nil {
		return entity.Point{}, entity.Point{}, err
	}
	return left, right, nil
}

// FaceWidth is the horizontal temple-to-temple distance in the coordinate
// space of landmarks.
func (e *Extractor) FaceWidth(landmarks entity.LandmarkSet) (float64, error) {
	left, ok := landmarks[e.cfg.LeftTemple]
	if !ok {
		return 0, &MissingLandmarkError{Index: e.cfg.LeftTemple}
	}
	right, ok := landmarks[e.cfg.RightTemple]
	if !ok {
		return 0, &MissingLandmarkError{Index: e.cfg.RightTemple}
	}
	return math.Abs(right.X - left.X), nil
}

// PixelToMM scales a distance by the reference face width. distance and
// faceWidth must be in the same units.
func (e *Extractor) PixelToMM(distance, faceWidth float64) (float64, error) {
	if faceWidth <= 0 || math.IsNaN(faceWidth) {
		return 0, ErrDegenerateFaceWidth
	}
	return distance * (e.cfg.ReferenceFaceWidthMM / faceWidth) * e.cfg.CalibrationFactor, nil
}

func PDPixels(left, right entity.Point) float64 {
	return math.Hypot(right.X-left.X, right.Y-left.Y)
}

// Measure computes a candidate measurement in whatever space landmarks are
// in. Confidence is left at zero; it is scored separately.
func (e *Extractor) Measure(landmarks entity.LandmarkSet) (*entity.PupilMeasurement, error) {
	left, right, err := e.IrisCenters(landmarks)
	if err != nil {
		return nil, err
	}

	faceWidth, err := e.FaceWidth(landmarks)
	if err != nil {
		return nil, err
	}

	pdPixels := PDPixels(left, right)
	pdMM, err := e.PixelToMM(pdPixels, faceWidth)
	if err != nil {
		return nil, err
	}

	return &entity.PupilMeasurement{
		LeftPupil:  left,
		RightPupil: right,
		PDPixels:   pdPixels,
		PDMM:       pdMM,
	}, nil
}

// MeasureFrame measures in pixel space using the frame dimensions.
func (e *Extractor) MeasureFrame(frame entity.Frame) (*entity.PupilMeasurement, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", frame.Width, frame.Height)
	}
	return e.Measure(frame.Pixels())
}
