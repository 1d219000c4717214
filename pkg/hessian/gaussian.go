package hessian

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"vesselness3d/internal/models"
)

// DefaultTruncate is the kernel half-width in standard deviations
const DefaultTruncate = 4.0

// gaussianKernel returns a normalized, symmetric 1D Gaussian of radius
// int(truncate*sigma + 0.5)
func gaussianKernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	if radius == 0 {
		kernel[0] = 1
		return kernel
	}
	s2 := sigma * sigma
	for i := -radius; i <= radius; i++ {
		kernel[i+radius] = math.Exp(-0.5 * float64(i*i) / s2)
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// reflectIndex maps i onto [0, n) by mirroring about the array edges,
// repeating the edge sample (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// lines describes how the 1D lines of a volume along one axis are laid out
// in the flat data array
type lines struct {
	length int // samples per line
	stride int // distance between consecutive samples
	count  int // number of lines
}

func linesAlong(shape []int, axis int) lines {
	stride := 1
	for _, s := range shape[:axis] {
		stride *= s
	}
	total := 1
	for _, s := range shape {
		total *= s
	}
	return lines{length: shape[axis], stride: stride, count: total / shape[axis]}
}

// base returns the flat offset of the first sample of line l
func (ls lines) base(l int) int {
	outer, inner := l/ls.stride, l%ls.stride
	return outer*ls.stride*ls.length + inner
}

// GaussianFilter smooths v with an isotropic Gaussian of standard deviation
// sigma, applied separably along every axis with reflecting boundaries.
// A sigma of zero returns an unmodified copy.
func GaussianFilter(v *models.Volume, sigma float64, workers int) (*models.Volume, error) {
	return gaussianFilter(v, sigma, DefaultTruncate, workers)
}

func gaussianFilter(v *models.Volume, sigma, truncate float64, workers int) (*models.Volume, error) {
	if sigma < 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("invalid sigma %v", sigma)
	}
	out := v.Clone()
	if sigma == 0 {
		return out, nil
	}

	kernel := gaussianKernel(sigma, truncate)
	radius := len(kernel) / 2
	for axis := range v.Shape {
		src := out
		dst := models.NewVolumeLike(v)
		ls := linesAlong(v.Shape, axis)
		err := parallelFor(workers, ls.count, func(lo, hi int) error {
			buf := make([]float64, ls.length)
			for l := lo; l < hi; l++ {
				base := ls.base(l)
				for i := range buf {
					buf[i] = src.Data[base+i*ls.stride]
				}
				for i := 0; i < ls.length; i++ {
					var acc float64
					for k, w := range kernel {
						acc += w * buf[reflectIndex(i+k-radius, ls.length)]
					}
					dst.Data[base+i*ls.stride] = acc
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = dst
	}
	return out, nil
}
