// Package vesselness implements the multi-scale Frangi vesselness filter for
// 3D volumes. At every scale the Hessian eigenvalues are turned into three
// suppression factors (plate, blob, background) whose product, restricted to
// voxels of the requested polarity, is the response at that scale. The
// output is the voxelwise maximum of the responses over all scales.
package vesselness

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/diagnostics"
	"vesselness3d/pkg/hessian"
	"vesselness3d/pkg/volmath"
)

// EigenvalueProvider supplies Hessian eigenvalues of a volume at one scale,
// ordered by ascending absolute value per voxel. When estimateConstant is
// set the result must carry a background-constant estimate.
type EigenvalueProvider interface {
	EigenvaluesAtScale(volume *models.Volume, sigma float64, scaleNormalize, estimateConstant bool) (*hessian.Eigenvalues, error)
}

// Filter runs the vesselness pipeline with a fixed parameter set
type Filter struct {
	params   Params
	provider EigenvalueProvider
	sink     diagnostics.Sink

	// sinkMu keeps the diagnostics of one scale together when scales run concurrently
	sinkMu sync.Mutex
}

// NewFilter creates a filter using the Hessian provider on all CPUs and no
// diagnostics
func NewFilter(params Params) *Filter {
	return &Filter{
		params:   params,
		provider: hessian.NewProvider(0),
		sink:     diagnostics.Nop{},
	}
}

// SetProvider replaces the eigenvalue provider
func (f *Filter) SetProvider(p EigenvalueProvider) {
	f.provider = p
}

// SetSink attaches a diagnostic sink; nil detaches it
func (f *Filter) SetSink(s diagnostics.Sink) {
	f.sink = diagnostics.OrNop(s)
}

// Params returns the filter's parameters
func (f *Filter) Params() Params {
	return f.params
}

// Frangi filters volume with params, reporting diagnostics to sink when it
// is non-nil
func Frangi(volume *models.Volume, params Params, sink diagnostics.Sink) (*models.Volume, error) {
	f := NewFilter(params)
	f.SetSink(sink)
	return f.Apply(volume)
}

func validateVolume(v *models.Volume) error {
	if v == nil {
		return invalid(ErrMalformedVolume, "volume is nil")
	}
	if v.Dims() != 3 {
		return invalid(ErrUnsupportedDimensionality, "got %d dimensions, only 3 are supported", v.Dims())
	}
	if err := v.Validate(); err != nil {
		return invalid(ErrMalformedVolume, "%v", err)
	}
	return nil
}

// Apply computes the vesselness of volume. Invalid input is reported as a
// *ValidationError before any scale is processed; errors from the provider
// are returned wrapped with the failing sigma.
func (f *Filter) Apply(volume *models.Volume) (*models.Volume, error) {
	if err := validateVolume(volume); err != nil {
		return nil, err
	}
	scales, err := f.params.Scales()
	if err != nil {
		return nil, err
	}

	constant := f.params.BackgroundConstant()
	stack := make([]*models.Volume, len(scales))

	var g errgroup.Group
	g.SetLimit(max(1, f.params.Workers))
	for i, sigma := range scales {
		i, sigma := i, sigma
		g.Go(func() error {
			response, err := f.responseAtScale(volume, sigma, constant)
			if err != nil {
				return fmt.Errorf("sigma %v: %w", sigma, err)
			}
			stack[i] = response
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := volmath.MaxProjection(stack)
	if len(volume.Spacing) == volume.Dims() {
		copy(out.Spacing, volume.Spacing)
	}
	return out, nil
}

// responseAtScale computes the single-scale response at sigma
func (f *Filter) responseAtScale(volume *models.Volume, sigma float64, constant BackgroundConstant) (*models.Volume, error) {
	ev, err := f.provider.EigenvaluesAtScale(volume, sigma, true, constant.Estimated())
	if err != nil {
		return nil, err
	}
	c, err := constant.Resolve(ev)
	if err != nil {
		return nil, err
	}

	fl := computeFields(ev.L1, ev.L2, ev.L3, f.params.Alpha, f.params.Beta, c)
	if diagnostics.Enabled(f.sink) {
		f.sinkMu.Lock()
		emitEigenvalues(f.sink, sigma, ev)
		emitVesselness(f.sink, sigma, fl)
		f.sinkMu.Unlock()
	}
	return fl.combine(f.params.BlackVessels, ev.L2, ev.L3), nil
}
