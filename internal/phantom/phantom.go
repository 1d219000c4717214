// Package phantom builds synthetic volumes with known geometry: a tube, a
// plate and a blob, each with a Gaussian intensity profile.
package phantom

import (
	"math"

	"vesselness3d/internal/models"
)

// Shape selects the kind of structure to draw
type Shape int

const (
	// Tube runs along Z through the centre of the XY plane
	Tube Shape = iota
	// Plate is a slab orthogonal to X through the centre
	Plate
	// Blob is a sphere at the centre
	Blob
)

// String returns the lower-case shape name
func (s Shape) String() string {
	switch s {
	case Tube:
		return "tube"
	case Plate:
		return "plate"
	case Blob:
		return "blob"
	}
	return "unknown"
}

// ParseShape is the inverse of String
func ParseShape(name string) (Shape, bool) {
	for _, s := range []Shape{Tube, Plate, Blob} {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// New draws shape into a width x height x depth volume. The intensity is
// exp(-d²/(2·radius²)) where d is the distance to the structure's centre
// line, plane or point. Bright structures peak at 1 on a 0 background;
// dark ones dip to 0 on a background of 1.
func New(shape Shape, width, height, depth int, radius float64, bright bool) *models.Volume {
	v := models.NewVolume(width, height, depth)
	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	cz := float64(depth-1) / 2
	r2 := 2 * radius * radius

	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
				var d2 float64
				switch shape {
				case Tube:
					d2 = dx*dx + dy*dy
				case Plate:
					d2 = dx * dx
				case Blob:
					d2 = dx*dx + dy*dy + dz*dz
				}
				val := math.Exp(-d2 / r2)
				if !bright {
					val = 1 - val
				}
				v.Set(x, y, z, val)
			}
		}
	}
	return v
}
