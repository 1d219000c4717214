package vesselness

import (
	"math"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/volmath"
)

// plateLike is 1 - exp(-Ra²/(2α²)); it rejects plates, where Ra is small
func plateLike(ra, alpha float64) float64 {
	return 1 - math.Exp(-(ra*ra)/(2*alpha*alpha))
}

// blobLike is exp(-Rb²/(2β²)); it rejects blobs, where Rb is large
func blobLike(rb, beta float64) float64 {
	return math.Exp(-(rb * rb) / (2 * beta * beta))
}

// background is 1 - exp(-S²/(2c²)); it rejects weak structure
func background(s, c float64) float64 {
	return 1 - math.Exp(-(s*s)/(2*c*c))
}

// PlateLikeFactor applies the plate suppression factor to every voxel of Ra
func PlateLikeFactor(ra *models.Volume, alpha float64) *models.Volume {
	return volmath.Map(ra, func(x float64) float64 { return plateLike(x, alpha) })
}

// BlobLikeFactor applies the blob suppression factor to every voxel of Rb
func BlobLikeFactor(rb *models.Volume, beta float64) *models.Volume {
	return volmath.Map(rb, func(x float64) float64 { return blobLike(x, beta) })
}

// BackgroundFactor applies the background suppression factor to every voxel of S
func BackgroundFactor(s *models.Volume, c float64) *models.Volume {
	return volmath.Map(s, func(x float64) float64 { return background(x, c) })
}
