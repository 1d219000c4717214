package vesselness

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselness3d/internal/models"
	"vesselness3d/internal/phantom"
	"vesselness3d/pkg/diagnostics"
	"vesselness3d/pkg/hessian"
)

// stubProvider returns eigenvalues produced by fn and records the sigmas it saw
type stubProvider struct {
	mu    sync.Mutex
	calls []float64
	fn    func(sigma float64, estimate bool) (*hessian.Eigenvalues, error)
}

func (p *stubProvider) EigenvaluesAtScale(_ *models.Volume, sigma float64, _, estimate bool) (*hessian.Eigenvalues, error) {
	p.mu.Lock()
	p.calls = append(p.calls, sigma)
	p.mu.Unlock()
	return p.fn(sigma, estimate)
}

func voxels(values ...float64) *models.Volume {
	v := models.NewVolume(len(values), 1, 1)
	copy(v.Data, values)
	return v
}

// constantTriple returns the same eigenvalues at every voxel of a 1x1x1 volume
func constantTriple(l1, l2, l3, c float64, estimate bool) *hessian.Eigenvalues {
	return &hessian.Eigenvalues{L1: voxels(l1), L2: voxels(l2), L3: voxels(l3), C: c, HasC: estimate}
}

const (
	exampleRa       = 0.5
	examplePlate    = 0.39346934028736658 // 1 - exp(-0.5)
	exampleResponse = 3.9346e-6
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, [2]float64{1, 10}, p.ScaleRange)
	assert.Equal(t, 2.0, p.ScaleStep)
	assert.Equal(t, 0.5, p.Alpha)
	assert.Equal(t, 0.5, p.Beta)
	assert.Equal(t, 500.0, p.FrangiC)
	assert.True(t, p.BlackVessels)
	assert.True(t, p.EstimateFrangiC)
	assert.Equal(t, EstimatedPerScale{}, p.BackgroundConstant())

	p.EstimateFrangiC = false
	assert.Equal(t, Fixed(500), p.BackgroundConstant())

	scales, err := p.Scales()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 7, 9}, scales)
}

func TestScaleSet(t *testing.T) {
	cases := []struct {
		name              string
		start, stop, step float64
		want              []float64
		err               error
	}{
		{"Default", 1, 10, 2, []float64{1, 3, 5, 7, 9}, nil},
		{"StopExclusive", 1, 9, 2, []float64{1, 3, 5, 7}, nil},
		{"Fractional", 0, 1, 0.25, []float64{0, 0.25, 0.5, 0.75}, nil},
		{"CountDown", 10, 1, -3, []float64{10, 7, 4}, nil},
		{"Negative", -1, 3, 1, nil, ErrNegativeScale},
		{"CountDownBelowZero", 3, -3, -2, nil, ErrNegativeScale},
		{"ZeroStep", 1, 10, 0, nil, ErrEmptyScaleSet},
		{"Empty", 5, 1, 1, nil, ErrEmptyScaleSet},
		{"TinyStep", 1, 10, 1e-300, nil, ErrEmptyScaleSet},
		{"InfiniteStop", 1, math.Inf(1), 1, nil, ErrEmptyScaleSet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScaleSet(tc.start, tc.stop, tc.step)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeMeasuresExample(t *testing.T) {
	ra, rb, s := ComputeMeasures(voxels(0), voxels(-1), voxels(-2))

	assert.InDelta(t, exampleRa, ra.Data[0], 1e-12)
	assert.Equal(t, 0.0, rb.Data[0])
	assert.InDelta(t, math.Sqrt(5), s.Data[0], 1e-12)
}

func TestComputeMeasuresZeroDenominators(t *testing.T) {
	ra, rb, s := ComputeMeasures(voxels(0, 1), voxels(0, 0), voxels(0, 2))

	for _, v := range []*models.Volume{ra, rb, s} {
		for _, x := range v.Data {
			assert.False(t, math.IsInf(x, 0) || math.IsNaN(x))
		}
	}
	assert.Equal(t, 0.0, ra.Data[0])
	// |λ2·λ3| = 0 so Rb takes the epsilon denominator
	assert.Greater(t, rb.Data[1], 1e9)
}

func TestSuppressionFactors(t *testing.T) {
	plate := PlateLikeFactor(voxels(exampleRa, 0, 100), 0.5)
	assert.InDelta(t, examplePlate, plate.Data[0], 1e-12)
	assert.Equal(t, 0.0, plate.Data[1])
	assert.InDelta(t, 1.0, plate.Data[2], 1e-12)

	blob := BlobLikeFactor(voxels(0, 100), 0.5)
	assert.Equal(t, 1.0, blob.Data[0])
	assert.InDelta(t, 0.0, blob.Data[1], 1e-12)

	bg := BackgroundFactor(voxels(math.Sqrt(5), 0, 1e6), 500)
	assert.InDelta(t, 1-math.Exp(-5.0/500000), bg.Data[0], 1e-15)
	assert.InDelta(t, 9.99995e-6, bg.Data[0], 1e-10)
	assert.Equal(t, 0.0, bg.Data[1])
	assert.InDelta(t, 1.0, bg.Data[2], 1e-12)
}

func TestComputeVesselnessExample(t *testing.T) {
	l1, l2, l3 := voxels(0), voxels(-1), voxels(-2)

	dark := ComputeVesselness(l1, l2, l3, 0.5, 0.5, 500, true, nil, 1)
	assert.InDelta(t, exampleResponse, dark.Data[0], 1e-9)
	assert.InDelta(t, examplePlate*(1-math.Exp(-1e-5)), dark.Data[0], 1e-15)

	bright := ComputeVesselness(l1, l2, l3, 0.5, 0.5, 500, false, nil, 1)
	assert.Equal(t, 0.0, bright.Data[0])
}

func TestFilterOutBackground(t *testing.T) {
	l2 := voxels(-1, -1, 0, 1, 1, -1)
	l3 := voxels(-2, 0, -2, 2, -2, -2)

	dark := voxels(0.5, 0.5, 0.5, 0.5, 0.5, math.NaN())
	FilterOutBackground(dark, true, l2, l3)
	assert.Equal(t, []float64{0.5, 0, 0, 0, 0, 0}, dark.Data)

	bright := voxels(0.5, 0.5, 0.5, 0.5, 0.5, math.NaN())
	FilterOutBackground(bright, false, l2, l3)
	assert.Equal(t, []float64{0, 0, 0, 0.5, 0, 0}, bright.Data)
}

func TestDegenerateVoxelsScrubbed(t *testing.T) {
	zero := voxels(0, 0)
	for _, c := range []float64{0, 500} {
		for _, black := range []bool{true, false} {
			out := ComputeVesselness(zero, zero, zero, 0.5, 0.5, c, black, nil, 1)
			assert.Equal(t, []float64{0, 0}, out.Data, "c=%v black=%v", c, black)
		}
	}
}

func TestValidationBeforeNumericWork(t *testing.T) {
	cases := []struct {
		name   string
		volume *models.Volume
		params func(*Params)
		err    error
	}{
		{"TwoD", models.NewVolume(4, 4), nil, ErrUnsupportedDimensionality},
		{"FourD", models.NewVolume(2, 2, 2, 2), nil, ErrUnsupportedDimensionality},
		{"Nil", nil, nil, ErrMalformedVolume},
		{"Ragged", &models.Volume{Shape: []int{2, 2, 2}, Data: make([]float64, 3)}, nil, ErrMalformedVolume},
		{"NegativeScale", models.NewVolume(3, 3, 3), func(p *Params) {
			p.ScaleRange = [2]float64{-2, 4}
		}, ErrNegativeScale},
		{"EmptyScaleSet", models.NewVolume(3, 3, 3), func(p *Params) {
			p.ScaleRange = [2]float64{4, 4}
		}, ErrEmptyScaleSet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultParams()
			if tc.params != nil {
				tc.params(&params)
			}
			provider := &stubProvider{fn: func(float64, bool) (*hessian.Eigenvalues, error) {
				return nil, errors.New("provider must not be called")
			}}
			f := NewFilter(params)
			f.SetProvider(provider)

			out, err := f.Apply(tc.volume)

			assert.Nil(t, out)
			require.ErrorIs(t, err, tc.err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Empty(t, provider.calls)
		})
	}
}

func TestEstimatedAndFixedConstant(t *testing.T) {
	provider := &stubProvider{fn: func(_ float64, estimate bool) (*hessian.Eigenvalues, error) {
		return constantTriple(0, -1, -2, 1, estimate), nil
	}}
	volume := models.NewVolume(1, 1, 1)

	params := DefaultParams()
	params.ScaleRange = [2]float64{1, 2}

	f := NewFilter(params)
	f.SetProvider(provider)
	out, err := f.Apply(volume)
	require.NoError(t, err)
	assert.InDelta(t, examplePlate*(1-math.Exp(-2.5)), out.Data[0], 1e-12)

	params.EstimateFrangiC = false
	f = NewFilter(params)
	f.SetProvider(provider)
	out, err = f.Apply(volume)
	require.NoError(t, err)
	assert.InDelta(t, examplePlate*(1-math.Exp(-1e-5)), out.Data[0], 1e-15)
}

func TestMissingEstimateIsAnError(t *testing.T) {
	f := NewFilter(DefaultParams())
	f.SetProvider(&stubProvider{fn: func(float64, bool) (*hessian.Eigenvalues, error) {
		return constantTriple(0, -1, -2, 0, false), nil
	}})

	_, err := f.Apply(models.NewVolume(1, 1, 1))
	assert.Error(t, err)
}

func TestProviderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	f := NewFilter(DefaultParams())
	f.SetProvider(&stubProvider{fn: func(sigma float64, estimate bool) (*hessian.Eigenvalues, error) {
		if sigma == 5 {
			return nil, boom
		}
		return constantTriple(0, -1, -2, 1, estimate), nil
	}})

	_, err := f.Apply(models.NewVolume(1, 1, 1))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sigma 5")
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestScalesProcessedInOrder(t *testing.T) {
	provider := &stubProvider{fn: func(_ float64, estimate bool) (*hessian.Eigenvalues, error) {
		return constantTriple(0, -1, -2, 1, estimate), nil
	}}
	f := NewFilter(DefaultParams())
	f.SetProvider(provider)

	_, err := f.Apply(models.NewVolume(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 7, 9}, provider.calls)
}

func TestMaximumAcrossScales(t *testing.T) {
	// voxel 0 responds best at sigma 3, voxel 1 at sigma 5, voxel 2 never
	table := map[float64][3][]float64{
		1: {{0, 0.1, 0}, {-1, -1, 1}, {-2, -2, 2}},
		3: {{0, 0.4, 0}, {-2, -0.5, 1}, {-2, -2, 2}},
		5: {{0.5, 0, 0}, {-0.5, -2, 1}, {-2, -2, 2}},
	}
	provider := &stubProvider{fn: func(sigma float64, _ bool) (*hessian.Eigenvalues, error) {
		e := table[sigma]
		return &hessian.Eigenvalues{L1: voxels(e[0]...), L2: voxels(e[1]...), L3: voxels(e[2]...)}, nil
	}}

	params := DefaultParams()
	params.ScaleRange = [2]float64{1, 6}
	params.EstimateFrangiC = false
	params.FrangiC = 1
	params.Workers = 3

	f := NewFilter(params)
	f.SetProvider(provider)
	out, err := f.Apply(models.NewVolume(3, 1, 1))
	require.NoError(t, err)

	want := make([]float64, 3)
	for _, sigma := range []float64{1, 3, 5} {
		e := table[sigma]
		single := ComputeVesselness(voxels(e[0]...), voxels(e[1]...), voxels(e[2]...), 0.5, 0.5, 1, true, nil, sigma)
		for i, x := range single.Data {
			want[i] = math.Max(want[i], x)
			assert.LessOrEqual(t, x, out.Data[i])
		}
	}
	assert.Equal(t, want, out.Data)
	assert.Equal(t, 0.0, out.Data[2])
}

// noisyTube is a bright tube with a little deterministic noise
func noisyTube() *models.Volume {
	v := phantom.New(phantom.Tube, 13, 13, 7, 2, true)
	rng := rand.New(rand.NewSource(7))
	for i := range v.Data {
		v.Data[i] += 0.01 * rng.NormFloat64()
	}
	return v
}

func smallParams() Params {
	p := DefaultParams()
	p.ScaleRange = [2]float64{1, 4}
	p.ScaleStep = 1
	return p
}

func TestOutputShapeAndRange(t *testing.T) {
	volume := noisyTube()

	for _, black := range []bool{true, false} {
		params := smallParams()
		params.BlackVessels = black
		out, err := Frangi(volume, params, nil)
		require.NoError(t, err)

		assert.Equal(t, volume.Shape, out.Shape)
		for i, x := range out.Data {
			require.False(t, math.IsNaN(x), "voxel %d is NaN", i)
			require.GreaterOrEqual(t, x, 0.0)
			require.LessOrEqual(t, x, 1.0)
		}
	}
}

func TestPolarityInvariance(t *testing.T) {
	volume := noisyTube()
	negated := volume.Clone()
	for i := range negated.Data {
		negated.Data[i] = -negated.Data[i]
	}

	dark := smallParams()
	bright := smallParams()
	bright.BlackVessels = false

	a, err := Frangi(volume, dark, nil)
	require.NoError(t, err)
	b, err := Frangi(negated, bright, nil)
	require.NoError(t, err)

	for i := range a.Data {
		require.InDelta(t, a.Data[i], b.Data[i], 1e-9, "voxel %d", i)
	}
}

func TestTubeOutranksBlobAndPlate(t *testing.T) {
	params := smallParams()
	at := func(shape phantom.Shape) float64 {
		out, err := Frangi(phantom.New(shape, 15, 15, 15, 2, true), params, nil)
		require.NoError(t, err)
		return out.At(7, 7, 7)
	}

	tube, blob, plate := at(phantom.Tube), at(phantom.Blob), at(phantom.Plate)
	assert.Greater(t, tube, 0.5)
	assert.Greater(t, tube, 2*blob)
	assert.Greater(t, tube, 2*plate)
}

func TestMultiScaleMatchesBestSingleScale(t *testing.T) {
	volume := phantom.New(phantom.Tube, 15, 15, 5, 2.5, true)
	params := smallParams()

	multi, err := Frangi(volume, params, nil)
	require.NoError(t, err)

	best := 0.0
	for _, sigma := range []float64{1, 2, 3} {
		p := params
		p.ScaleRange = [2]float64{sigma, sigma + params.ScaleStep}
		single, err := Frangi(volume, p, nil)
		require.NoError(t, err)
		for i := range single.Data {
			require.LessOrEqual(t, single.Data[i], multi.Data[i])
		}
		best = math.Max(best, single.At(7, 7, 2))
	}
	assert.Equal(t, best, multi.At(7, 7, 2))
	assert.Greater(t, best, 0.0)
}

func TestConcurrentScalesMatchSequential(t *testing.T) {
	volume := noisyTube()

	sequential, err := Frangi(volume, smallParams(), nil)
	require.NoError(t, err)

	params := smallParams()
	params.Workers = 3
	concurrent, err := Frangi(volume, params, diagnostics.NewRecorder())
	require.NoError(t, err)

	assert.Equal(t, sequential.Data, concurrent.Data)
}

func TestDiagnosticsDoNotChangeResult(t *testing.T) {
	volume := noisyTube()
	params := smallParams()
	params.ScaleRange = [2]float64{1.5, 2}

	plain, err := Frangi(volume, params, nil)
	require.NoError(t, err)

	rec := diagnostics.NewRecorder()
	observed, err := Frangi(volume, params, rec)
	require.NoError(t, err)

	assert.Equal(t, plain.Data, observed.Data)
	assert.Equal(t, "sigma 1.5", rec.Messages[0])
	assert.Contains(t, rec.Vectors, "eig_val_as_vec_150.mhd")
	for _, name := range []string{"eig1_150.mhd", "eig2_150.mhd", "eig3_150.mhd",
		"vesselness/plate_Ra_1_s150.mhd", "vesselness/blob_Rb_1_s150.mhd",
		"vesselness/background_S_1_s150.mhd", "vesselness/Ra_1_s150.mhd",
		"vesselness/Rb_1_s150.mhd", "vesselness/S_1_s150.mhd"} {
		assert.Contains(t, rec.Volumes, name)
	}
	assert.Contains(t, rec.Messages[len(rec.Messages)-1], "alpha 0.5 beta 0.5 c ")
}

func TestNonFiniteInputYieldsZeros(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		volume := phantom.New(phantom.Tube, 6, 6, 6, 1, false)
		volume.Set(2, 3, 3, bad)

		params := DefaultParams()
		params.ScaleRange = [2]float64{1, 2}
		for _, estimate := range []bool{true, false} {
			params.EstimateFrangiC = estimate
			out, err := Frangi(volume, params, nil)
			require.NoError(t, err, "voxel %v estimate %v", bad, estimate)
			require.Equal(t, volume.Shape, out.Shape)
			for i, r := range out.Data {
				require.False(t, math.IsNaN(r) || math.IsInf(r, 0), "voxel %d is %v", i, r)
				require.GreaterOrEqual(t, r, 0.0)
				require.LessOrEqual(t, r, 1.0)
			}
		}
	}
}
