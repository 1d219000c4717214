package vesselness

import (
	"math"
)

// maxScales bounds the number of scales a single filter run may evaluate
const maxScales = 1 << 20

// ScaleSet returns start, start+step, start+2·step, ... up to but excluding
// stop. A negative step counts down. Every scale must be non-negative.
func ScaleSet(start, stop, step float64) ([]float64, error) {
	if step == 0 || math.IsNaN(step) {
		return nil, invalid(ErrEmptyScaleSet, "scale step must be non-zero, got %v", step)
	}
	n := math.Ceil((stop - start) / step)
	if math.IsNaN(n) || n <= 0 {
		return nil, invalid(ErrEmptyScaleSet, "range [%v, %v) with step %v contains no scales", start, stop, step)
	}
	if math.IsInf(n, 0) || n > maxScales {
		return nil, invalid(ErrEmptyScaleSet, "range [%v, %v) with step %v yields more than %d scales", start, stop, step, maxScales)
	}

	scales := make([]float64, int(n))
	for i := range scales {
		scales[i] = start + float64(i)*step
		if scales[i] < 0 {
			return nil, invalid(ErrNegativeScale, "sigma %v is less than zero", scales[i])
		}
	}
	return scales, nil
}
