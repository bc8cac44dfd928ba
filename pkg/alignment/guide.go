// Package alignment decides, frame by frame, whether a face is positioned and
// held still well enough to measure.
//
// A Guide keeps a short rolling window of face centres and must be owned by a
// single session. It is not safe for concurrent use.
package alignment

import (
	"PupilMeter/internal/entity"
	"math"
)

const (
	MsgNoFace          = "No face detected. Please look at the camera."
	MsgMoveCloser      = "Move closer to the camera"
	MsgMoveBack        = "Move back from the camera"
	MsgCenterLeftRight = "Center your face: move left/right"
	MsgCenterUpDown    = "Center your face: move up/down"
	MsgEyesNotVisible  = "Eyes not visible. Please look at the camera."
	MsgKeepLevel       = "Keep your head level"
	MsgHoldStill       = "Hold still..."
	MsgAligned         = "Perfect! Hold still..."
)

type Config struct {
	// Ideal oval, as fractions of the frame size, centred in the frame.
	OvalWidthRatio  float64
	OvalHeightRatio float64

	SizeTolerance        float64
	OffsetTolerance      float64
	RotationToleranceDeg float64

	LeftEyeCluster  []int
	RightEyeCluster []int

	// WindowSize is the number of recent face centres that must be collected
	// before a face can be reported stable.
	WindowSize int
	// MaxDrift is the allowed max-min spread of the window, as a fraction of
	// the frame dimension on each axis.
	MaxDrift float64
}

func DefaultConfig() Config {
	return Config{
		OvalWidthRatio:       0.4,
		OvalHeightRatio:      0.6,
		SizeTolerance:        0.08,
		OffsetTolerance:      0.05,
		RotationToleranceDeg: 5,
		LeftEyeCluster:       []int{468, 469, 470, 471},
		RightEyeCluster:      []int{473, 474, 475, 476},
		WindowSize:           8,
		MaxDrift:             0.02,
	}
}

type Guide struct {
	cfg    Config
	window *window
}

func New(cfg Config) *Guide {
	size := cfg.WindowSize
	if size < 1 {
		size = 1
	}
	return &Guide{
		cfg:    cfg,
		window: newWindow(size),
	}
}

// Reset drops the stability history.
func (g *Guide) Reset() {
	g.window.clear()
}

// Samples reports how many face centres are currently in the window.
func (g *Guide) Samples() int {
	return g.window.len()
}

// Check evaluates one frame. Checks run in a fixed order (size, horizontal
// offset, vertical offset, rotation, stability) and the first failure sets the
// reported state and message.
func (g *Guide) Check(frame entity.Frame) entity.AlignmentStatus {
	if !frame.HasFace() || frame.Width <= 0 || frame.Height <= 0 {
		g.window.clear()
		return entity.AlignmentStatus{
			State:   entity.AlignmentNoFace,
			Message: MsgNoFace,
		}
	}

	fw, fh := float64(frame.Width), float64(frame.Height)
	points := frame.Pixels()
	box := boundsOf(points)

	center := entity.Position{X: (box.minX + box.maxX) / 2, Y: (box.minY + box.maxY) / 2}
	width := box.maxX - box.minX

	idealWidth := fw * g.cfg.OvalWidthRatio
	sizeDev := (width - idealWidth) / idealWidth
	xDev := (center.X - fw/2) / fw
	yDev := (center.Y - fh/2) / fh

	status := entity.AlignmentStatus{
		State:      entity.AlignmentOutOfPosition,
		FaceCenter: &center,
		FaceWidth:  &width,
		Deviations: map[string]float64{
			"size": sizeDev,
			"x":    xDev,
			"y":    yDev,
		},
	}

	if math.Abs(sizeDev) > g.cfg.SizeTolerance {
		if sizeDev > 0 {
			status.Message = MsgMoveBack
		} else {
			status.Message = MsgMoveCloser
		}
		return status
	}

	if math.Abs(xDev) > g.cfg.OffsetTolerance {
		status.Message = MsgCenterLeftRight
		return status
	}
	if math.Abs(yDev) > g.cfg.OffsetTolerance {
		status.Message = MsgCenterUpDown
		return status
	}

	angle, ok := g.eyeAngle(points)
	if !ok {
		status.Message = MsgEyesNotVisible
		return status
	}
	status.Deviations["rotation"] = angle
	if math.Abs(angle) > g.cfg.RotationToleranceDeg {
		status.Message = MsgKeepLevel
		return status
	}

	g.window.push(center)
	if !g.window.full() || !g.window.steady(fw*g.cfg.MaxDrift, fh*g.cfg.MaxDrift) {
		status.State = entity.AlignmentUnstable
		status.Message = MsgHoldStill
		return status
	}

	status.State = entity.AlignmentAligned
	status.Aligned = true
	status.Message = MsgAligned
	return status
}

// eyeAngle is the roll angle in degrees between the two eye cluster centroids,
// folded into [-90, 90] so a swapped left/right convention reads as level.
func (g *Guide) eyeAngle(points entity.LandmarkSet) (float64, bool) {
	left, ok := centroid(points, g.cfg.LeftEyeCluster)
	if !ok {
		return 0, false
	}
	right, ok := centroid(points, g.cfg.RightEyeCluster)
	if !ok {
		return 0, false
	}

	angle := math.Atan2(right.Y-left.Y, right.X-left.X) * 180 / math.Pi
	switch {
	case angle > 90:
		angle -= 180
	case angle < -90:
		angle += 180
	}
	return angle, true
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func boundsOf(points entity.LandmarkSet) bounds {
	b := bounds{
		minX: math.Inf(1), maxX: math.Inf(-1),
		minY: math.Inf(1), maxY: math.Inf(-1),
	}
	for _, p := range points {
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}
	return b
}

func centroid(points entity.LandmarkSet, indices []int) (entity.Point, bool) {
	if len(indices) == 0 {
		return entity.Point{}, false
	}
	var sx, sy float64
	for _, idx := range indices {
		p, ok := points[idx]
		if !ok {
			return entity.Point{}, false
		}
		sx += p.X
		sy += p.Y
	}
	n := float64(len(indices))
	return entity.Point{X: sx / n, Y: sy / n}, true
}
