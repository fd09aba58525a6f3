package engine

import (
	"fmt"
	"math"

	"github.com/fatumlabs/fatum/internal/application/domain"
)

// anomalyZThreshold flags options whose count deviates more than three
// standard deviations from the binomial expectation.
const anomalyZThreshold = 3.0

// timeSeriesSnapshots is the target number of evenly spaced snapshots
// per decision run.
const timeSeriesSnapshots = 20

// Snapshot is the running distribution after a given trial.
type Snapshot struct {
	StepIndex    int            `json:"step_index"`
	Distribution map[string]int `json:"distribution"`
}

// DecisionReport is the outcome of a weighted Monte Carlo decision run.
type DecisionReport struct {
	TotalTrials  int            `json:"total_trials"`
	Winner       string         `json:"winner"`
	Distribution map[string]int `json:"distribution"`
	Anomalies    []string       `json:"anomalies"`
	TimeSeries   []Snapshot     `json:"time_series"`
}

// SimulateDecision runs trials of weighted categorical sampling over
// options. A nil weights slice means equal weighting. The run consumes
// a local copy of the session's pool cursor, so it never mutates the
// session and identical sessions produce identical reports.
func (s *SimulationSession) SimulateDecision(options []string, weights []float64, trials int) (DecisionReport, error) {
	if trials < 0 {
		return DecisionReport{}, fmt.Errorf("negative trial count %d: %w", trials, domain.ErrInvalidInput)
	}

	if len(options) == 0 {
		return DecisionReport{
			TotalTrials:  0,
			Winner:       "None",
			Distribution: map[string]int{},
			Anomalies:    []string{},
			TimeSeries:   []Snapshot{},
		}, nil
	}

	fractions, err := weightFractions(options, weights)
	if err != nil {
		return DecisionReport{}, err
	}

	// Cumulative thresholds, clamped so the final bucket is always
	// reachable despite floating-point drift.
	cdf := make([]float64, len(options))
	cumulative := 0.0
	for i, f := range fractions {
		cumulative += f
		cdf[i] = cumulative
	}
	cdf[len(cdf)-1] = 1.0

	stream := newChaChaStream(s.seed)
	cursor := s.cursor
	counts := make([]int, len(options))

	snapshotEvery := trials / timeSeriesSnapshots
	if snapshotEvery < 1 {
		snapshotEvery = 1
	}
	timeSeries := []Snapshot{}

	for trial := 1; trial <= trials; trial++ {
		r := s.nextUniformFloat(&cursor, stream)

		idx := len(options) - 1
		for j, threshold := range cdf {
			if threshold >= r {
				idx = j
				break
			}
		}
		counts[idx]++

		if trial%snapshotEvery == 0 || trial == trials {
			timeSeries = append(timeSeries, Snapshot{
				StepIndex:    trial,
				Distribution: distributionMap(options, counts),
			})
		}
	}

	// First-seen maximum over option order keeps the winner stable.
	winner := options[0]
	maxCount := counts[0]
	for i := 1; i < len(options); i++ {
		if counts[i] > maxCount {
			maxCount = counts[i]
			winner = options[i]
		}
	}

	return DecisionReport{
		TotalTrials:  trials,
		Winner:       winner,
		Distribution: distributionMap(options, counts),
		Anomalies:    detectAnomalies(options, fractions, counts, trials),
		TimeSeries:   timeSeries,
	}, nil
}

// weightFractions normalizes weights into per-option probabilities, or
// equal 1/N steps when weights is nil.
func weightFractions(options []string, weights []float64) ([]float64, error) {
	fractions := make([]float64, len(options))

	if weights == nil {
		for i := range fractions {
			fractions[i] = 1.0 / float64(len(options))
		}
		return fractions, nil
	}

	if len(weights) != len(options) {
		return nil, fmt.Errorf("%d weights for %d options: %w", len(weights), len(options), domain.ErrInvalidInput)
	}

	sum := 0.0
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("weight %v: %w", w, domain.ErrInvalidInput)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("weights sum to %v: %w", sum, domain.ErrInvalidInput)
	}

	for i, w := range weights {
		fractions[i] = w / sum
	}
	return fractions, nil
}

func distributionMap(options []string, counts []int) map[string]int {
	dist := make(map[string]int, len(options))
	for i, opt := range options {
		dist[opt] = counts[i]
	}
	return dist
}

// detectAnomalies flags options whose observed count deviates from the
// binomial expectation by more than the Z threshold.
func detectAnomalies(options []string, fractions []float64, counts []int, trials int) []string {
	anomalies := []string{}
	for i, opt := range options {
		p := fractions[i]
		expected := float64(trials) * p
		stddev := math.Sqrt(float64(trials) * p * (1 - p))

		z := 0.0
		if stddev > 0 {
			z = (float64(counts[i]) - expected) / stddev
		}
		if math.Abs(z) <= anomalyZThreshold {
			continue
		}

		direction := "high"
		if z < 0 {
			direction = "low"
		}
		anomalies = append(anomalies, fmt.Sprintf(
			"Option '%s' deviated %s from expectation (z=%.2f)", opt, direction, z))
	}
	return anomalies
}
