package models

import (
	"fmt"
)

// Volume represents a dense scalar field sampled on a regular grid.
// For 3D data Shape is (X, Y, Z) and Data is stored with X varying fastest,
// i.e. the voxel (x, y, z) lives at z*X*Y + y*X + x.
type Volume struct {
	// Shape holds the number of samples along each axis
	Shape []int

	// Data is the volume data as a 1D array
	Data []float64

	// Spacing is the physical size of each voxel along each axis in mm.
	// It is carried through for I/O only and never used in computation.
	Spacing []float64
}

// NewVolume allocates a zero-filled volume with the given shape
func NewVolume(shape ...int) *Volume {
	n := 1
	for _, s := range shape {
		n *= s
	}
	spacing := make([]float64, len(shape))
	for i := range spacing {
		spacing[i] = 1
	}
	return &Volume{
		Shape:   append([]int(nil), shape...),
		Data:    make([]float64, n),
		Spacing: spacing,
	}
}

// NewVolumeLike allocates a zero-filled volume with the shape and spacing of v
func NewVolumeLike(v *Volume) *Volume {
	out := NewVolume(v.Shape...)
	if len(v.Spacing) == len(v.Shape) {
		copy(out.Spacing, v.Spacing)
	}
	return out
}

// Dims returns the number of axes
func (v *Volume) Dims() int { return len(v.Shape) }

// Len returns the number of voxels
func (v *Volume) Len() int { return len(v.Data) }

// Width, Height and Depth return the extent of a 3D volume along X, Y and Z
func (v *Volume) Width() int  { return v.Shape[0] }
func (v *Volume) Height() int { return v.Shape[1] }
func (v *Volume) Depth() int  { return v.Shape[2] }

// Index returns the flat index of voxel (x, y, z) in a 3D volume
func (v *Volume) Index(x, y, z int) int {
	return z*v.Shape[0]*v.Shape[1] + y*v.Shape[0] + x
}

// At returns the value of voxel (x, y, z)
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores val at voxel (x, y, z)
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[v.Index(x, y, z)] = val
}

// Clone returns a deep copy of the volume
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Shape:   append([]int(nil), v.Shape...),
		Data:    append([]float64(nil), v.Data...),
		Spacing: append([]float64(nil), v.Spacing...),
	}
	return out
}

// SameShape reports whether v and o have identical shapes
func (v *Volume) SameShape(o *Volume) bool {
	if len(v.Shape) != len(o.Shape) {
		return false
	}
	for i := range v.Shape {
		if v.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Validate checks that the shape is positive along every axis and matches
// the length of Data
func (v *Volume) Validate() error {
	if len(v.Shape) == 0 {
		return fmt.Errorf("volume has no axes")
	}
	n := 1
	for i, s := range v.Shape {
		if s <= 0 {
			return fmt.Errorf("axis %d has non-positive length %d", i, s)
		}
		n *= s
	}
	if n != len(v.Data) {
		return fmt.Errorf("shape %v holds %d voxels but data has %d", v.Shape, n, len(v.Data))
	}
	return nil
}
