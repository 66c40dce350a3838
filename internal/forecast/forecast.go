// Package forecast assembles the original-scale forecast: calendar years for
// each step ahead plus the inverse Box-Cox mapping of the model's mean and
// interval bounds.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/random-logic/sta137-final/internal/arima"
	"github.com/random-logic/sta137-final/internal/transform"
)

// Options controls how predictions are mapped back to the original scale.
type Options struct {
	LastYear int  // year of the final observed value; forecasts start the year after
	Strict   bool // error on out-of-domain bounds instead of clamping
}

// Result carries the forecast on both scales. The transformed slices are the
// model's own output; Mean/Lower/Upper are on the original measurement scale
// when the Box-Cox transform was applied, otherwise identical copies.
// Clamped[i] is true when any bound at step i had to be pulled back to the
// invertible domain edge.
type Result struct {
	Horizon int     `json:"horizon"`
	Level   float64 `json:"level"`
	Years   []int   `json:"years"`

	MeanTransformed  []float64 `json:"mean_transformed"`
	LowerTransformed []float64 `json:"lower_transformed"`
	UpperTransformed []float64 `json:"upper_transformed"`

	Mean  []float64 `json:"mean"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`

	Clamped  []bool   `json:"clamped"`
	Warnings []string `json:"warnings,omitempty"`
}

// Apply maps an ARIMA forecast back to the original scale. When the
// transform was applied, mean and bounds run through the inverse Box-Cox
// elementwise; a bound outside the invertible domain is clamped to the
// domain edge with a warning (default) or returned as a *transform.DomainError
// in strict mode. The output never contains NaN.
func Apply(fc *arima.Forecast, params transform.Params, opts Options) (*Result, error) {
	if fc == nil || len(fc.Mean) == 0 {
		return nil, fmt.Errorf("no forecast to assemble")
	}
	h := len(fc.Mean)

	res := &Result{
		Horizon:          h,
		Level:            fc.Level,
		Years:            make([]int, h),
		MeanTransformed:  append([]float64(nil), fc.Mean...),
		LowerTransformed: append([]float64(nil), fc.Lower...),
		UpperTransformed: append([]float64(nil), fc.Upper...),
		Mean:             make([]float64, h),
		Lower:            make([]float64, h),
		Upper:            make([]float64, h),
		Clamped:          make([]bool, h),
	}
	for i := 0; i < h; i++ {
		res.Years[i] = opts.LastYear + 1 + i
	}

	if !params.Applied {
		copy(res.Mean, fc.Mean)
		copy(res.Lower, fc.Lower)
		copy(res.Upper, fc.Upper)
		return res, nil
	}

	for i := 0; i < h; i++ {
		m, err := invert(res, fc.Mean[i], params.Lambda, i, "mean", opts.Strict)
		if err != nil {
			return nil, err
		}
		lo, err := invert(res, fc.Lower[i], params.Lambda, i, "lower bound", opts.Strict)
		if err != nil {
			return nil, err
		}
		up, err := invert(res, fc.Upper[i], params.Lambda, i, "upper bound", opts.Strict)
		if err != nil {
			return nil, err
		}
		res.Mean[i], res.Lower[i], res.Upper[i] = m, lo, up
	}
	return res, nil
}

// invert maps one transformed value back to the original scale. Out-of-domain
// values clamp to the edge: the inverse tends to zero from below for positive
// exponents and diverges for negative ones, so the clamped value is 0 or
// MaxFloat64 respectively.
func invert(res *Result, x, lambda float64, step int, what string, strict bool) (float64, error) {
	v, err := transform.InverseBoxCox(x, lambda)
	if err == nil {
		return v, nil
	}
	var de *transform.DomainError
	if !errors.As(err, &de) {
		return 0, err
	}
	if strict {
		de.Index = step
		return 0, de
	}

	clamped := 0.0
	if lambda < 0 {
		clamped = math.MaxFloat64
	}
	res.Clamped[step] = true
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("step %d: %s outside the invertible domain, clamped to the edge", step+1, what))
	return clamped, nil
}
