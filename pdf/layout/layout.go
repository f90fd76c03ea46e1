// Package layout provides page geometry and a small page builder for
// generated documents.
package layout

import "math"

// Unit represents a measurement unit.
type Unit float64

const (
	// Points - the base PDF unit (1/72 inch)
	Pt Unit = 1
	// Inches
	In Unit = 72
	// Millimeters
	Mm Unit = 72 / 25.4
)

// ToPoints converts a value in the given unit to points.
func ToPoints(value float64, unit Unit) float64 {
	return value * float64(unit)
}

// PageSize represents page dimensions in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Standard page sizes in points
var (
	A4     = PageSize{595.28, 841.89}
	Letter = PageSize{612, 792}
)

// Landscape returns the page size in landscape orientation.
func (p PageSize) Landscape() PageSize {
	if p.Width < p.Height {
		return PageSize{p.Height, p.Width}
	}
	return p
}

// Rectangle is an axis-aligned box given by its lower-left corner and size.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

// NewRectangle creates a rectangle.
func NewRectangle(x, y, width, height float64) Rectangle {
	return Rectangle{X: x, Y: y, Width: width, Height: height}
}

// Right returns the x coordinate of the right edge.
func (r Rectangle) Right() float64 { return r.X + r.Width }

// Top returns the y coordinate of the top edge.
func (r Rectangle) Top() float64 { return r.Y + r.Height }

// Inset shrinks the rectangle by amount on every side.
func (r Rectangle) Inset(amount float64) Rectangle {
	return Rectangle{r.X + amount, r.Y + amount, math.Max(0, r.Width-2*amount), math.Max(0, r.Height-2*amount)}
}

// ScaleToFit returns the largest size with the aspect ratio of r that fits
// into maxWidth x maxHeight.
func (r Rectangle) ScaleToFit(maxWidth, maxHeight float64) Rectangle {
	if r.Width <= 0 || r.Height <= 0 {
		return Rectangle{X: r.X, Y: r.Y}
	}
	scale := math.Min(maxWidth/r.Width, maxHeight/r.Height)
	return Rectangle{X: r.X, Y: r.Y, Width: r.Width * scale, Height: r.Height * scale}
}

// Alignment represents horizontal or vertical alignment.
type Alignment int

const (
	AlignStart Alignment = iota
	AlignCenter
	AlignEnd
)

// Position calculates the offset of an item within a container.
func Position(containerSize, itemSize float64, align Alignment) float64 {
	switch align {
	case AlignCenter:
		return (containerSize - itemSize) / 2
	case AlignEnd:
		return containerSize - itemSize
	default:
		return 0
	}
}

// CenterIn places item in the middle of container, keeping its size.
func CenterIn(item, container Rectangle) Rectangle {
	return Rectangle{
		X:      container.X + Position(container.Width, item.Width, AlignCenter),
		Y:      container.Y + Position(container.Height, item.Height, AlignCenter),
		Width:  item.Width,
		Height: item.Height,
	}
}
