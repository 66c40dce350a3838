package stats_test

import (
	"errors"
	"math"
	"testing"

	"github.com/random-logic/sta137-final/internal/stats"
)

// ─── Fixtures ─────────────────────────────────────────────────────────────────

// whiteNoise is a fixed 60-point standard-normal draw. Its sample
// autocorrelations are small at every lag 1..20, so portmanteau tests on it
// pass comfortably.
var whiteNoise = []float64{
	0.0409, 0.4649, -0.4609, 0.3526, 0.9262, 0.4113, 1.5621, -0.8851,
	0.0674, -0.7052, -0.7836, -0.1839, 0.2213, 0.4190, 0.5081, 2.2337,
	0.8626, -1.5945, 0.2044, -0.6230, -0.5157, 1.3062, -0.2229, -1.9513,
	0.3106, -0.2915, -1.1744, -0.9211, -0.6253, -0.0234, -0.4267, 0.0715,
	1.8362, -0.8003, -0.8074, -0.2492, 1.0956, -0.7062, 1.4343, -1.3081,
	-1.0323, -0.0544, -0.8634, -0.6184, 0.4512, 0.7242, 0.1139, -0.2746,
	1.3442, 0.4026, -0.2351, 1.2143, -0.9014, 0.1647, 0.6596, -0.0113,
	-0.5745, 0.3506, -0.5406, -0.5954,
}

// arSeries is whiteNoise filtered through y[t] = 0.7*y[t-1] + e[t]: strongly
// autocorrelated at lag 1 with the AR(1) partial-autocorrelation cutoff.
var arSeries = []float64{
	0.0409, 0.4935, -0.1154, 0.2718, 1.1165, 1.1928, 2.3971, 0.7929,
	0.6224, -0.2695, -0.9723, -0.8645, -0.3838, 0.1503, 0.6133, 2.6630,
	2.7267, 0.3142, 0.4243, -0.3260, -0.7439, 0.7855, 0.3269, -1.7224,
	-0.8951, -0.9181, -1.8171, -2.1930, -2.1604, -1.5357, -1.5017, -0.9797,
	1.1504, 0.0050, -0.8039, -0.8119, 0.5272, -0.3371, 1.1983, -0.4693,
	-1.3608, -1.0070, -1.5683, -1.7162, -0.7501, 0.1991, 0.2533, -0.0973,
	1.2761, 1.2959, 0.6720, 1.6847, 0.2779, 0.3592, 0.9111, 0.6264,
	-0.1360, 0.2554, -0.3618, -0.8487,
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func isNumericalError(err error) bool {
	var ne *stats.NumericalError
	return errors.As(err, &ne)
}

// ─── ACF ──────────────────────────────────────────────────────────────────────

func TestACFLagZeroIsOne(t *testing.T) {
	acf, err := stats.ACF(whiteNoise, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(acf[0], 1, 1e-12) {
		t.Errorf("acf[0]: expected 1, got %g", acf[0])
	}
	if len(acf) != 11 {
		t.Errorf("expected 11 values, got %d", len(acf))
	}
}

func TestACFAlternatingSeries(t *testing.T) {
	alt := make([]float64, 20)
	for i := range alt {
		if i%2 == 0 {
			alt[i] = 1
		} else {
			alt[i] = -1
		}
	}
	acf, err := stats.ACF(alt, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// lag-1 autocorrelation of a perfectly alternating series is -(n-1)/n
	if !approxEqual(acf[1], -0.95, 1e-9) {
		t.Errorf("acf[1]: expected -0.95, got %g", acf[1])
	}
}

func TestACFARSeriesPositiveLag1(t *testing.T) {
	acf, err := stats.ACF(arSeries, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(acf[1], 0.644, 0.005) {
		t.Errorf("acf[1]: expected about 0.644, got %g", acf[1])
	}
}

func TestACFConstantSeries(t *testing.T) {
	_, err := stats.ACF([]float64{3, 3, 3, 3, 3}, 2)
	if !isNumericalError(err) {
		t.Fatalf("expected NumericalError for constant series, got %v", err)
	}
}

func TestACFTruncatesLag(t *testing.T) {
	acf, err := stats.ACF([]float64{1, 2, 1, 3}, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(acf) != 4 {
		t.Errorf("expected lag truncation to n-1, got %d values", len(acf))
	}
}

// ─── PACF ─────────────────────────────────────────────────────────────────────

func TestPACFLag1EqualsACF(t *testing.T) {
	acf, err := stats.ACF(arSeries, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pacf, err := stats.PACF(arSeries, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(pacf[1], acf[1], 1e-12) {
		t.Errorf("pacf[1]=%g should equal acf[1]=%g", pacf[1], acf[1])
	}
	if !approxEqual(pacf[0], 1, 1e-12) {
		t.Errorf("pacf[0]: expected 1, got %g", pacf[0])
	}
}

func TestPACFAR1Cutoff(t *testing.T) {
	pacf, err := stats.PACF(arSeries, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// AR(1): strong partial autocorrelation at lag 1, near zero beyond.
	if pacf[1] < 0.5 {
		t.Errorf("pacf[1]: expected > 0.5, got %g", pacf[1])
	}
	if math.Abs(pacf[2]) > 0.2 {
		t.Errorf("pacf[2]: expected near 0, got %g", pacf[2])
	}
	if math.Abs(pacf[5]) > 0.2 {
		t.Errorf("pacf[5]: expected near 0, got %g", pacf[5])
	}
}

// ─── Confidence bounds ────────────────────────────────────────────────────────

func TestConfBound(t *testing.T) {
	if !approxEqual(stats.ConfBound(60), 0.2530, 5e-4) {
		t.Errorf("ConfBound(60): expected about 0.2530, got %g", stats.ConfBound(60))
	}
	if !math.IsNaN(stats.ConfBound(0)) {
		t.Error("ConfBound(0) should be NaN")
	}
}

func TestSignificantLags(t *testing.T) {
	values := []float64{1, 0.8, 0.1, -0.4, 0.05}
	got := stats.SignificantLags(values, 0.25)
	want := []int{1, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lag %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}
