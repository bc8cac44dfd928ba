package geometry

import (
	"PupilMeter/internal/entity"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faceLandmarks builds a set whose iris clusters are centred on left and
// right and whose temples sit at templeLeft and templeRight (x only).
func faceLandmarks(left, right entity.Point, templeLeft, templeRight float64) entity.LandmarkSet {
	set := entity.LandmarkSet{}
	offsets := []entity.Point{{X: -0.01}, {Y: -0.01}, {X: 0.01}, {Y: 0.01}}
	cfg := DefaultConfig()
	for i, idx := range cfg.LeftIris {
		set[idx] = entity.Landmark{X: left.X + offsets[i].X, Y: left.Y + offsets[i].Y}
	}
	for i, idx := range cfg.RightIris {
		set[idx] = entity.Landmark{X: right.X + offsets[i].X, Y: right.Y + offsets[i].Y}
	}
	set[cfg.LeftTemple] = entity.Landmark{X: templeLeft, Y: 0.5}
	set[cfg.RightTemple] = entity.Landmark{X: templeRight, Y: 0.5}
	return set
}

func TestIrisCenter(t *testing.T) {
	ex := New(DefaultConfig())
	set := entity.LandmarkSet{
		1: {X: 0.1, Y: 0.2},
		2: {X: 0.3, Y: 0.2},
		3: {X: 0.2, Y: 0.1},
		4: {X: 0.2, Y: 0.3},
	}

	center, err := ex.IrisCenter(set, []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, center.X, 1e-9)
	assert.InDelta(t, 0.2, center.Y, 1e-9)

	t.Run("missing index", func(t *testing.T) {
		_, err := ex.IrisCenter(set, []int{1, 2, 3, 5})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingLandmark))

		var missing *MissingLandmarkError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, 5, missing.Index)
	})
}

func TestFaceWidth(t *testing.T) {
	ex := New(DefaultConfig())
	set := faceLandmarks(entity.Point{X: 0.4, Y: 0.5}, entity.Point{X: 0.6, Y: 0.5}, 0.7, 0.3)

	width, err := ex.FaceWidth(set)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, width, 1e-9)

	delete(set, DefaultConfig().RightTemple)
	_, err = ex.FaceWidth(set)
	assert.ErrorIs(t, err, ErrMissingLandmark)
}

func TestPixelToMM(t *testing.T) {
	ex := New(DefaultConfig())

	mm, err := ex.PixelToMM(128, 200)
	require.NoError(t, err)
	assert.InDelta(t, 128*(145.0/200)*0.943, mm, 1e-9)

	for _, width := range []float64{0, -1} {
		_, err := ex.PixelToMM(128, width)
		assert.ErrorIs(t, err, ErrDegenerateFaceWidth)
	}
}

func TestPixelToMMIsLinear(t *testing.T) {
	ex := New(DefaultConfig())
	base, err := ex.PixelToMM(10, 180)
	require.NoError(t, err)

	for _, k := range []float64{0, 0.5, 2, 7.25} {
		mm, err := ex.PixelToMM(10*k, 180)
		require.NoError(t, err)
		assert.InDelta(t, base*k, mm, 1e-9)
	}
}

func TestPDPixels(t *testing.T) {
	assert.InDelta(t, 5.0, PDPixels(entity.Point{X: 0, Y: 0}, entity.Point{X: 3, Y: 4}), 1e-9)
	assert.Zero(t, PDPixels(entity.Point{X: 1, Y: 1}, entity.Point{X: 1, Y: 1}))
}

func TestMeasureFrame(t *testing.T) {
	ex := New(DefaultConfig())

	// Temples 200px apart in a 640x480 frame.
	templeLeft := 220.0 / 640
	templeRight := 420.0 / 640
	frame := entity.Frame{
		Landmarks: faceLandmarks(entity.Point{X: 0.40, Y: 0.50}, entity.Point{X: 0.60, Y: 0.50}, templeLeft, templeRight),
		Width:     640,
		Height:    480,
	}

	m, err := ex.MeasureFrame(frame)
	require.NoError(t, err)
	assert.InDelta(t, 128.0, m.PDPixels, 1e-6)
	assert.InDelta(t, 128*(145.0/200)*0.943, m.PDMM, 1e-6)
	assert.InDelta(t, 256.0, m.LeftPupil.X, 1e-6)
	assert.InDelta(t, 384.0, m.RightPupil.X, 1e-6)
	assert.Zero(t, m.Confidence)

	t.Run("degenerate face width", func(t *testing.T) {
		frame := entity.Frame{
			Landmarks: faceLandmarks(entity.Point{X: 0.4, Y: 0.5}, entity.Point{X: 0.6, Y: 0.5}, 0.5, 0.5),
			Width:     640,
			Height:    480,
		}
		_, err := ex.MeasureFrame(frame)
		assert.ErrorIs(t, err, ErrDegenerateFaceWidth)
	})

	t.Run("invalid frame size", func(t *testing.T) {
		_, err := ex.MeasureFrame(entity.Frame{Landmarks: frame.Landmarks})
		assert.Error(t, err)
	})
}
