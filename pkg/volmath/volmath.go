// Package volmath provides elementwise operations over same-shaped volumes.
//
// Every binary operation requires operands of identical shape; there is no
// broadcasting. A shape mismatch is a programming error and panics, following
// the convention of gonum's floats package.
package volmath

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vesselness3d/internal/models"
)

// Epsilon replaces exactly-zero denominators in Divide
const Epsilon = 1e-10

func mustMatch(a, b *models.Volume) {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("volmath: shape mismatch %v vs %v", a.Shape, b.Shape))
	}
}

// Divide returns num/den elementwise. Wherever den is exactly zero, Epsilon
// is used instead so the result stays finite for finite numerators.
func Divide(num, den *models.Volume) *models.Volume {
	mustMatch(num, den)
	safe := make([]float64, len(den.Data))
	for i, d := range den.Data {
		if d == 0 {
			d = Epsilon
		}
		safe[i] = d
	}
	out := models.NewVolumeLike(num)
	floats.DivTo(out.Data, num.Data, safe)
	return out
}

// Map applies fn to every voxel of v and returns the result in a new volume
func Map(v *models.Volume, fn func(float64) float64) *models.Volume {
	out := models.NewVolumeLike(v)
	for i, x := range v.Data {
		out.Data[i] = fn(x)
	}
	return out
}

// Abs returns |v|
func Abs(v *models.Volume) *models.Volume { return Map(v, math.Abs) }

// Sqrt returns the elementwise square root of v
func Sqrt(v *models.Volume) *models.Volume { return Map(v, math.Sqrt) }

// Square returns v²
func Square(v *models.Volume) *models.Volume {
	return Mul(v, v)
}

// Mul returns the elementwise product of all operands
func Mul(first *models.Volume, rest ...*models.Volume) *models.Volume {
	out := first.Clone()
	for _, v := range rest {
		mustMatch(first, v)
		floats.Mul(out.Data, v.Data)
	}
	return out
}

// ScrubNaN replaces NaN voxels with zero in place and returns the number replaced
func ScrubNaN(v *models.Volume) int {
	n := 0
	for i, x := range v.Data {
		if math.IsNaN(x) {
			v.Data[i] = 0
			n++
		}
	}
	return n
}

// Range returns the minimum and maximum voxel values.
// NaN voxels are ignored; an all-NaN volume yields NaN for both.
func Range(v *models.Volume) (lo, hi float64) {
	finite := withoutNaN(v.Data)
	if len(finite) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(finite), floats.Max(finite)
}

// Stats summarises the distribution of a volume for diagnostics
type Stats struct {
	Min, Max  float64
	Mean, Std float64
	NaN       int
}

// Summary computes Stats over the non-NaN voxels of v
func Summary(v *models.Volume) Stats {
	finite := withoutNaN(v.Data)
	s := Stats{NaN: len(v.Data) - len(finite)}
	if len(finite) == 0 {
		s.Min, s.Max, s.Mean, s.Std = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Min, s.Max = floats.Min(finite), floats.Max(finite)
	if len(finite) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(finite, nil)
	} else {
		s.Mean = finite[0]
	}
	return s
}

func withoutNaN(data []float64) []float64 {
	if !floats.HasNaN(data) {
		return data
	}
	out := make([]float64, 0, len(data))
	for _, x := range data {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// MaxProjection returns the voxelwise maximum over a stack of same-shaped
// volumes. It panics on an empty stack.
func MaxProjection(stack []*models.Volume) *models.Volume {
	if len(stack) == 0 {
		panic("volmath: empty stack")
	}
	out := stack[0].Clone()
	for _, v := range stack[1:] {
		mustMatch(out, v)
		for i, x := range v.Data {
			if x > out.Data[i] {
				out.Data[i] = x
			}
		}
	}
	return out
}
