package stats

import (
	"math"
)

// ADFResult holds the outcome of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic  float64            `json:"statistic"`
	PValue     float64            `json:"p_value"`
	UsedLag    int                `json:"used_lag"`
	NObs       int                `json:"n_obs"`
	Critical   map[string]float64 `json:"critical_values"`
	Stationary bool               `json:"stationary"`
}

// StationarityAlpha is the significance threshold for the stationarity
// verdict.
const StationarityAlpha = 0.05

// ADF performs the Augmented Dickey-Fuller unit-root test with a constant
// term. The null hypothesis is that the series has a unit root
// (non-stationary); the series is reported stationary when p < 0.05.
//
// The regression is delta_y_t = alpha + beta*y_{t-1} + sum gamma_i *
// delta_y_{t-i} + e_t and the statistic is the t-ratio on beta. The lag
// order is selected automatically by minimizing the regression AIC over
// 0..maxLag on a common sample; maxLag < 0 uses the Schwert bound
// floor(12*(n/100)^0.25).
func ADF(xs []float64, maxLag int) (*ADFResult, error) {
	n := len(xs)
	if n < 10 {
		return nil, &NumericalError{Test: "adf", Reason: "need at least 10 observations"}
	}
	if variance(xs) == 0 {
		return nil, &NumericalError{Test: "adf", Reason: "series is constant"}
	}

	if maxLag < 0 {
		maxLag = int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
	}
	// The comparison sample loses maxLag+1 rows; keep enough left to regress.
	if maxLag > n/2-2 {
		maxLag = n/2 - 2
	}
	if maxLag < 0 {
		maxLag = 0
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = xs[i] - xs[i-1]
	}

	// Lag selection: all candidates regress on the same rows (those valid at
	// maxLag) so their AICs are comparable.
	usedLag := 0
	if maxLag > 0 {
		bestAIC := math.Inf(1)
		for k := 0; k <= maxLag; k++ {
			_, _, sse, nObs, err := adfRegression(xs, diff, k, maxLag)
			if err != nil {
				continue
			}
			if sse <= 0 {
				continue
			}
			// Gaussian AIC up to constants: n*log(sse/n) + 2*(k+2)
			aic := float64(nObs)*math.Log(sse/float64(nObs)) + 2*float64(k+2)
			if aic < bestAIC {
				bestAIC = aic
				usedLag = k
			}
		}
	}

	// Final regression at the chosen lag uses every available row.
	coeffs, se, _, nObs, err := adfRegression(xs, diff, usedLag, usedLag)
	if err != nil {
		return nil, err
	}
	if se[1] == 0 {
		return nil, &NumericalError{Test: "adf", Reason: "zero standard error on level coefficient"}
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		UsedLag:   usedLag,
		NObs:      nObs,
		Critical: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		Stationary: pValue < StationarityAlpha,
	}, nil
}

// adfRegression runs the ADF regression with k lagged differences, starting
// the sample at offset (rows valid for lag order `offset`). Returns the
// coefficients, standard errors, SSE and the number of rows used.
func adfRegression(xs, diff []float64, k, offset int) (coeffs, se []float64, sse float64, nObs int, err error) {
	n := len(xs)
	nObs = n - offset - 1
	if nObs < k+4 {
		return nil, nil, 0, 0, &NumericalError{Test: "adf", Reason: "too few observations for lag order"}
	}

	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + offset
		y[i] = diff[t]
		row := make([]float64, 2+k)
		row[0] = 1
		row[1] = xs[t] // level at t, i.e. y_{t-1} relative to diff[t] = y_t - y_{t-1}
		for j := 1; j <= k; j++ {
			row[1+j] = diff[t-j]
		}
		x[i] = row
	}

	coeffs, se, sse, err = olsRegress(x, y)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return coeffs, se, sse, nObs, nil
}

// mackinnonAnchors are (statistic, p-value) pairs for the constant-only ADF
// regression, from MacKinnon's asymptotic critical values.
var mackinnonAnchors = [][2]float64{
	{-3.96, 0.001},
	{-3.43, 0.01},
	{-2.86, 0.05},
	{-2.57, 0.10},
	{-1.94, 0.25},
	{-1.62, 0.50},
}

// mackinnonPValue approximates the ADF p-value by piecewise-linear
// interpolation through the MacKinnon critical values.
func mackinnonPValue(stat float64) float64 {
	first := mackinnonAnchors[0]
	if stat <= first[0] {
		return first[1]
	}
	for i := 1; i < len(mackinnonAnchors); i++ {
		lo, hi := mackinnonAnchors[i-1], mackinnonAnchors[i]
		if stat <= hi[0] {
			frac := (stat - lo[0]) / (hi[0] - lo[0])
			return lo[1] + frac*(hi[1]-lo[1])
		}
	}
	// Beyond the table: drift linearly toward 0.99.
	last := mackinnonAnchors[len(mackinnonAnchors)-1]
	return math.Min(last[1]+(stat-last[0])*0.25, 0.99)
}
