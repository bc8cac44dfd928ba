package alignment

import (
	"PupilMeter/internal/entity"
	"math"
)

// window is a fixed-capacity FIFO of face centres; the oldest entry is
// evicted once it is full.
type window struct {
	items []entity.Position
	size  int
}

func newWindow(size int) *window {
	return &window{
		items: make([]entity.Position, 0, size),
		size:  size,
	}
}

func (w *window) push(p entity.Position) {
	if len(w.items) == w.size {
		copy(w.items, w.items[1:])
		w.items = w.items[:w.size-1]
	}
	w.items = append(w.items, p)
}

func (w *window) clear() {
	w.items = w.items[:0]
}

func (w *window) len() int {
	return len(w.items)
}

func (w *window) full() bool {
	return len(w.items) == w.size
}

func (w *window) steady(maxDX, maxDY float64) bool {
	if len(w.items) == 0 {
		return false
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range w.items {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return maxX-minX <= maxDX && maxY-minY <= maxDY
}
