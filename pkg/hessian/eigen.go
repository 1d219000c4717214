package hessian

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"vesselness3d/internal/models"
)

// Eigenvalues holds the per-voxel Hessian eigenvalues at one scale, ordered
// so that |L1| <= |L2| <= |L3| at every voxel
type Eigenvalues struct {
	L1, L2, L3 *models.Volume

	// C is the estimated background-suppression constant for this scale.
	// It is only meaningful when HasC is set.
	C    float64
	HasC bool
}

// sortByAbs orders three values by ascending absolute value
func sortByAbs(v *[3]float64) {
	if math.Abs(v[0]) > math.Abs(v[1]) {
		v[0], v[1] = v[1], v[0]
	}
	if math.Abs(v[1]) > math.Abs(v[2]) {
		v[1], v[2] = v[2], v[1]
	}
	if math.Abs(v[0]) > math.Abs(v[1]) {
		v[0], v[1] = v[1], v[0]
	}
}

// Eigen decomposes the Hessian at every voxel and returns its eigenvalues
// sorted by absolute value. Voxels whose Hessian is not finite, or fails to
// decompose, get NaN eigenvalues.
func (h *Hessian) Eigen(workers int) (*Eigenvalues, error) {
	ref := h.Elements[XX]
	ev := &Eigenvalues{
		L1: models.NewVolumeLike(ref),
		L2: models.NewVolumeLike(ref),
		L3: models.NewVolumeLike(ref),
	}

	err := parallelFor(workers, ref.Len(), func(lo, hi int) error {
		sym := mat.NewSymDense(3, nil)
		var es mat.EigenSym
		var vals [3]float64
		for i := lo; i < hi; i++ {
			finite := true
			for k, p := range pairs {
				e := h.Elements[k].Data[i]
				if math.IsNaN(e) || math.IsInf(e, 0) {
					finite = false
					break
				}
				sym.SetSym(p[0], p[1], e)
			}
			if !finite || !es.Factorize(sym, false) {
				ev.L1.Data[i] = math.NaN()
				ev.L2.Data[i] = math.NaN()
				ev.L3.Data[i] = math.NaN()
				continue
			}
			es.Values(vals[:])
			sortByAbs(&vals)
			ev.L1.Data[i] = vals[0]
			ev.L2.Data[i] = vals[1]
			ev.L3.Data[i] = vals[2]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}
