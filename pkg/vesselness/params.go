package vesselness

import (
	"fmt"

	"vesselness3d/pkg/hessian"
)

// Params configures one run of the filter. It is passed by value and never
// modified by the filter.
type Params struct {
	// ScaleRange is the half-open interval [start, stop) of Gaussian sigmas
	ScaleRange [2]float64

	// ScaleStep is the increment between consecutive sigmas
	ScaleStep float64

	// Alpha controls sensitivity to plate-like structure through Ra
	Alpha float64

	// Beta controls sensitivity to blob-like structure through Rb
	Beta float64

	// FrangiC is the background-suppression constant used when
	// EstimateFrangiC is off
	FrangiC float64

	// BlackVessels keeps voxels where λ2 and λ3 are both negative. When
	// false, voxels where both are positive are kept instead.
	BlackVessels bool

	// EstimateFrangiC takes the constant from the eigenvalue provider's
	// per-scale estimate instead of FrangiC
	EstimateFrangiC bool

	// Workers bounds how many scales are computed concurrently
	Workers int
}

// DefaultParams returns the standard parameter set
func DefaultParams() Params {
	return Params{
		ScaleRange:      [2]float64{1, 10},
		ScaleStep:       2,
		Alpha:           0.5,
		Beta:            0.5,
		FrangiC:         500,
		BlackVessels:    true,
		EstimateFrangiC: true,
		Workers:         1,
	}
}

// BackgroundConstant resolves the (FrangiC, EstimateFrangiC) pair into
// either Fixed or EstimatedPerScale
func (p Params) BackgroundConstant() BackgroundConstant {
	if p.EstimateFrangiC {
		return EstimatedPerScale{}
	}
	return Fixed(p.FrangiC)
}

// Scales builds the scale set described by ScaleRange and ScaleStep
func (p Params) Scales() ([]float64, error) {
	return ScaleSet(p.ScaleRange[0], p.ScaleRange[1], p.ScaleStep)
}

// BackgroundConstant is the source of the constant c in the background
// factor. It is either Fixed or EstimatedPerScale.
type BackgroundConstant interface {
	// Estimated reports whether the provider must supply a per-scale estimate
	Estimated() bool

	// Resolve returns c for the scale whose eigenvalues are ev
	Resolve(ev *hessian.Eigenvalues) (float64, error)
}

// Fixed uses the same constant at every scale
type Fixed float64

func (Fixed) Estimated() bool { return false }

func (c Fixed) Resolve(*hessian.Eigenvalues) (float64, error) { return float64(c), nil }

// EstimatedPerScale takes the provider's estimate for each scale
type EstimatedPerScale struct{}

func (EstimatedPerScale) Estimated() bool { return true }

func (EstimatedPerScale) Resolve(ev *hessian.Eigenvalues) (float64, error) {
	if !ev.HasC {
		return 0, fmt.Errorf("eigenvalue provider returned no background constant estimate")
	}
	return ev.C, nil
}
