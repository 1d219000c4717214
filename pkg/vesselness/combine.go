package vesselness

import (
	"vesselness3d/internal/models"
	"vesselness3d/pkg/diagnostics"
	"vesselness3d/pkg/volmath"
)

// fields holds the intermediate volumes of one scale
type fields struct {
	ra, rb, s               *models.Volume
	plate, blob, background *models.Volume
	alpha, beta, c          float64
}

func computeFields(l1, l2, l3 *models.Volume, alpha, beta, c float64) *fields {
	f := &fields{alpha: alpha, beta: beta, c: c}
	f.ra, f.rb, f.s = ComputeMeasures(l1, l2, l3)
	f.plate = PlateLikeFactor(f.ra, alpha)
	f.blob = BlobLikeFactor(f.rb, beta)
	f.background = BackgroundFactor(f.s, c)
	return f
}

func (f *fields) combine(blackVessels bool, l2, l3 *models.Volume) *models.Volume {
	response := volmath.Mul(f.plate, f.blob, f.background)
	FilterOutBackground(response, blackVessels, l2, l3)
	return response
}

// ComputeVesselness returns the single-scale vesselness response for the
// given eigenvalues. The product of the plate, blob and background factors
// is passed through FilterOutBackground, so the result lies in [0, 1].
// Intermediate fields are reported to sink under sigma when it is enabled.
func ComputeVesselness(l1, l2, l3 *models.Volume, alpha, beta, c float64, blackVessels bool, sink diagnostics.Sink, sigma float64) *models.Volume {
	f := computeFields(l1, l2, l3, alpha, beta, c)
	if diagnostics.Enabled(sink) {
		emitVesselness(sink, sigma, f)
	}
	return f.combine(blackVessels, l2, l3)
}

// FilterOutBackground zeroes, in place, every voxel whose λ2/λ3 signs do not
// match the requested polarity, then replaces NaN voxels with zero.
//
// With blackVessels set, voxels where λ2 >= 0 or λ3 >= 0 are zeroed;
// otherwise voxels where λ2 <= 0 or λ3 <= 0 are zeroed.
func FilterOutBackground(v *models.Volume, blackVessels bool, l2, l3 *models.Volume) {
	for i := range v.Data {
		a, b := l2.Data[i], l3.Data[i]
		if blackVessels {
			if a >= 0 || b >= 0 {
				v.Data[i] = 0
			}
		} else if a <= 0 || b <= 0 {
			v.Data[i] = 0
		}
	}
	volmath.ScrubNaN(v)
}
