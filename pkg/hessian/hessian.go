// Package hessian computes scale-space Hessian matrices of 3D volumes and
// their eigenvalues, ordered by absolute value, for use by shape filters.
package hessian

import (
	"fmt"
	"math"

	"vesselness3d/internal/models"
)

// Upper-triangle element positions in Hessian.Elements
const (
	XX = iota
	XY
	XZ
	YY
	YZ
	ZZ
)

// Hessian holds the six distinct second derivatives of a smoothed 3D volume
type Hessian struct {
	Elements [6]*models.Volume
	Sigma    float64
}

// pairs lists the (row, col) of each stored element
var pairs = [6][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 2}, {2, 2}}

// ComputeHessian smooths v with a Gaussian of width sigma and differentiates
// it twice. When scaleNormalize is set and sigma > 0, every element is
// multiplied by sigma² so responses are comparable across scales.
func ComputeHessian(v *models.Volume, sigma float64, scaleNormalize bool, workers int) (*Hessian, error) {
	if v.Dims() != 3 {
		return nil, fmt.Errorf("hessian requires a 3D volume, got %d dims", v.Dims())
	}
	smoothed, err := GaussianFilter(v, sigma, workers)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth volume: %w", err)
	}

	var first [3]*models.Volume
	for axis := range first {
		if first[axis], err = Gradient(smoothed, axis); err != nil {
			return nil, err
		}
	}

	h := &Hessian{Sigma: sigma}
	for i, p := range pairs {
		if h.Elements[i], err = Gradient(first[p[0]], p[1]); err != nil {
			return nil, err
		}
	}

	if sigma > 0 && scaleNormalize {
		s2 := sigma * sigma
		for _, e := range h.Elements {
			for i := range e.Data {
				e.Data[i] *= s2
			}
		}
	}
	return h, nil
}

// FrobeniusNorm returns the per-voxel Frobenius norm of the full symmetric
// matrix, counting off-diagonal elements twice
func (h *Hessian) FrobeniusNorm() *models.Volume {
	out := models.NewVolumeLike(h.Elements[XX])
	for i := range out.Data {
		var sum float64
		for k, e := range h.Elements {
			x := e.Data[i]
			if pairs[k][0] == pairs[k][1] {
				sum += x * x
			} else {
				sum += 2 * x * x
			}
		}
		out.Data[i] = math.Sqrt(sum)
	}
	return out
}
