package hessian

import (
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/floats"

	"vesselness3d/internal/models"
)

// Provider computes Hessian eigenvalues of a volume at a requested scale
type Provider struct {
	// Workers bounds the goroutines used for smoothing and eigen decomposition
	Workers int
}

// NewProvider creates a provider using the given number of workers.
// A non-positive count uses every available CPU.
func NewProvider(workers int) *Provider {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Provider{Workers: workers}
}

// EigenvaluesAtScale returns the eigenvalues of the Hessian of v at scale
// sigma. When estimateConstant is set, the result also carries a
// background-suppression constant equal to half the largest Hessian
// Frobenius norm observed at this scale.
func (p *Provider) EigenvaluesAtScale(v *models.Volume, sigma float64, scaleNormalize, estimateConstant bool) (*Eigenvalues, error) {
	h, err := ComputeHessian(v, sigma, scaleNormalize, p.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hessian at sigma %v: %w", sigma, err)
	}

	ev, err := h.Eigen(p.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to compute eigenvalues at sigma %v: %w", sigma, err)
	}

	if estimateConstant {
		ev.C = EstimateConstant(h)
		ev.HasC = true
	}
	return ev, nil
}

// EstimateConstant derives the background-suppression constant from the
// distribution of Hessian norms: half of the maximum norm
func EstimateConstant(h *Hessian) float64 {
	norm := h.FrobeniusNorm()
	if norm.Len() == 0 {
		return 0
	}
	return 0.5 * floats.Max(norm.Data)
}
