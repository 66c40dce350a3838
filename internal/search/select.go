package search

import (
	"fmt"
	"math"
)

// GridResult pairs a full grid sweep with the candidate selection made over
// it, so downstream consumers see both the ranking and the winner.
type GridResult struct {
	Results []FitResult `json:"results"`
	Best    *FitResult  `json:"best,omitempty"`
}

// EmptySetError reports a grid in which no candidate produced a usable fit.
type EmptySetError struct {
	Tried int
}

func (e *EmptySetError) Error() string {
	return fmt.Sprintf("no model converged out of %d candidates", e.Tried)
}

// SelectBest picks the converged candidate with the lowest AIC. Ties resolve
// by lower BIC, then lower p, then lower q, so selection is deterministic
// regardless of how the grid was produced. Returns *EmptySetError when every
// candidate failed.
func SelectBest(results []FitResult) (*FitResult, error) {
	var best *FitResult
	for i := range results {
		r := &results[i]
		if !r.Converged || math.IsInf(r.AIC, 1) || math.IsNaN(r.AIC) {
			continue
		}
		if best == nil || better(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil, &EmptySetError{Tried: len(results)}
	}
	return best, nil
}

func better(a, b *FitResult) bool {
	if a.AIC != b.AIC {
		return a.AIC < b.AIC
	}
	if a.BIC != b.BIC {
		return a.BIC < b.BIC
	}
	if a.Candidate.P != b.Candidate.P {
		return a.Candidate.P < b.Candidate.P
	}
	return a.Candidate.Q < b.Candidate.Q
}
