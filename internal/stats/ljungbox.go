package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult holds the outcome of a Ljung-Box portmanteau test.
type LjungBoxResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
	DOF       int     `json:"dof"`
}

// LjungBox tests for autocorrelation in a residual series up to the given
// lag. The null hypothesis is that the residuals are uncorrelated; a small
// p-value rejects it. fitdf is the number of parameters estimated by the
// model that produced the residuals (p+q for ARIMA); it reduces the degrees
// of freedom, floored at 1.
func LjungBox(xs []float64, lags, fitdf int) (*LjungBoxResult, error) {
	n := len(xs)
	if lags < 1 {
		return nil, &NumericalError{Test: "ljung-box", Reason: fmt.Sprintf("lags must be >= 1, got %d", lags)}
	}
	if n < 4 {
		return nil, &NumericalError{Test: "ljung-box", Reason: fmt.Sprintf("need at least 4 observations, got %d", n)}
	}
	if lags >= n {
		lags = n - 1
	}

	acf, err := ACF(xs, lags)
	if err != nil {
		return nil, err
	}

	// Q = n(n+2) * sum_k r_k^2 / (n-k)
	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi := distuv.ChiSquared{K: float64(dof)}
	pValue := 1 - chi.CDF(q)

	return &LjungBoxResult{
		Statistic: q,
		PValue:    pValue,
		Lags:      lags,
		DOF:       dof,
	}, nil
}

// ARCH tests for conditional heteroskedasticity (volatility clustering) by
// applying the Ljung-Box test to the squared residuals — the McLeod-Li
// portmanteau. The null hypothesis is homoskedastic residuals.
func ARCH(residuals []float64, lags int) (*LjungBoxResult, error) {
	if len(residuals) < 4 {
		return nil, &NumericalError{Test: "arch", Reason: fmt.Sprintf("need at least 4 observations, got %d", len(residuals))}
	}
	sq := make([]float64, len(residuals))
	for i, r := range residuals {
		sq[i] = r * r
	}
	res, err := LjungBox(sq, lags, 0)
	if err != nil {
		if ne, ok := err.(*NumericalError); ok {
			return nil, &NumericalError{Test: "arch", Reason: ne.Reason}
		}
		return nil, err
	}
	return res, nil
}
