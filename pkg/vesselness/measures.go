package vesselness

import (
	"math"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/volmath"
)

// ComputeMeasures derives the anisotropy measures from eigenvalues ordered
// by absolute value:
//
//	Ra = |λ2| / |λ3|             plate-like vs line-like
//	Rb = |λ1| / sqrt(|λ2·λ3|)    blob-like vs line-like
//	S  = sqrt(λ1² + λ2² + λ3²)   second-order structureness
//
// Both ratios use a safe divide, so zero denominators give large finite values.
func ComputeMeasures(l1, l2, l3 *models.Volume) (ra, rb, s *models.Volume) {
	ra = volmath.Divide(volmath.Abs(l2), volmath.Abs(l3))
	rb = volmath.Divide(volmath.Abs(l1), volmath.Sqrt(volmath.Abs(volmath.Mul(l2, l3))))

	s = models.NewVolumeLike(l1)
	for i := range s.Data {
		a, b, c := l1.Data[i], l2.Data[i], l3.Data[i]
		s.Data[i] = math.Sqrt(a*a + b*b + c*c)
	}
	return ra, rb, s
}
