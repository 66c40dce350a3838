package stats

import (
	"math"
)

// olsRegress performs ordinary least squares of y on the rows of x.
// Returns coefficients, their standard errors, and the sum of squared
// residuals. A singular design matrix yields a NumericalError.
func olsRegress(x [][]float64, y []float64) (coeffs, stdErrors []float64, sse float64, err error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil, 0, &NumericalError{Test: "ols", Reason: "empty or mismatched design"}
	}
	k := len(x[0])
	if n <= k {
		return nil, nil, 0, &NumericalError{Test: "ols", Reason: "more regressors than observations"}
	}

	// X'X and X'y
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			xty[j] += x[i][j] * y[i]
			for l := 0; l < k; l++ {
				xtx[j][l] += x[i][j] * x[i][l]
			}
		}
	}

	xtxInv := invertMatrix(xtx)
	if xtxInv == nil {
		return nil, nil, 0, &NumericalError{Test: "ols", Reason: "singular design matrix"}
	}

	// beta = (X'X)^-1 X'y
	coeffs = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coeffs[i] += xtxInv[i][j] * xty[j]
		}
	}

	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x[i][j]
		}
		r := y[i] - pred
		sse += r * r
	}

	s2 := sse / float64(n-k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(s2 * xtxInv[i][i])
	}
	return coeffs, stdErrors, sse, nil
}

// invertMatrix inverts a square matrix using Gauss-Jordan elimination with
// partial pivoting. Returns nil for singular input.
func invertMatrix(m [][]float64) [][]float64 {
	n := len(m)
	if n == 0 {
		return nil
	}

	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i][:n], m[i])
		aug[i][n+i] = 1
	}

	for i := 0; i < n; i++ {
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(aug[k][i]) > math.Abs(aug[maxRow][i]) {
				maxRow = k
			}
		}
		aug[i], aug[maxRow] = aug[maxRow], aug[i]

		if math.Abs(aug[i][i]) < 1e-10 {
			return nil
		}

		pivot := aug[i][i]
		for j := 0; j < 2*n; j++ {
			aug[i][j] /= pivot
		}
		for k := 0; k < n; k++ {
			if k != i {
				factor := aug[k][i]
				for j := 0; j < 2*n; j++ {
					aug[k][j] -= factor * aug[i][j]
				}
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}
	return inv
}
