package hessian

import (
	"fmt"

	"vesselness3d/internal/models"
)

// Gradient differentiates v along axis with unit sample spacing: central
// differences in the interior and one-sided first differences at the two
// ends. An axis of length one has zero derivative.
func Gradient(v *models.Volume, axis int) (*models.Volume, error) {
	if axis < 0 || axis >= v.Dims() {
		return nil, fmt.Errorf("axis %d out of range for %d-d volume", axis, v.Dims())
	}
	out := models.NewVolumeLike(v)
	ls := linesAlong(v.Shape, axis)
	n := ls.length
	if n < 2 {
		return out, nil
	}

	for l := 0; l < ls.count; l++ {
		base := ls.base(l)
		at := func(i int) float64 { return v.Data[base+i*ls.stride] }

		out.Data[base] = at(1) - at(0)
		for i := 1; i < n-1; i++ {
			out.Data[base+i*ls.stride] = (at(i+1) - at(i-1)) / 2
		}
		out.Data[base+(n-1)*ls.stride] = at(n-1) - at(n-2)
	}
	return out, nil
}
