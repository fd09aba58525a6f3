package engine

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/fatumlabs/fatum/internal/application/domain"
)

func TestDecisionDeterminism(t *testing.T) {
	entropy := []byte{1, 3, 5, 2, 9, 8, 7, 6, 0xAA, 0xBB}
	options := []string{"A", "B", "C"}

	first, err := NewSession(entropy).SimulateDecision(options, nil, 500)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewSession(entropy).SimulateDecision(options, nil, 500)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("independently constructed sessions diverged:\n%+v\n%+v", first, second)
	}
}

func TestDecisionRepeatedRunsIndependent(t *testing.T) {
	// Repeated calls against one session must start from the same
	// logical cursor and so produce identical reports.
	session := NewSession([]byte{4, 4, 4, 4, 4, 4, 4, 4, 1, 2, 3})
	options := []string{"yes", "no"}

	first, err := session.SimulateDecision(options, nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	second, err := session.SimulateDecision(options, nil, 100)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs on one session diverged:\n%+v\n%+v", first, second)
	}
}

func TestDecisionConservation(t *testing.T) {
	report, err := NewSession([]byte{7, 7, 7}).SimulateDecision([]string{"A", "B", "C"}, nil, 12345)
	if err != nil {
		t.Fatal(err)
	}

	sum := 0
	for _, count := range report.Distribution {
		sum += count
	}
	if sum != 12345 {
		t.Fatalf("distribution sums to %d, want 12345", sum)
	}
}

func TestDecisionEmptyOptions(t *testing.T) {
	report, err := NewSession([]byte{1, 2, 3}).SimulateDecision(nil, nil, 10)
	if err != nil {
		t.Fatal(err)
	}

	if report.TotalTrials != 0 {
		t.Fatalf("total trials = %d, want 0", report.TotalTrials)
	}
	if report.Winner != "None" {
		t.Fatalf("winner = %q, want \"None\"", report.Winner)
	}
	if len(report.Distribution) != 0 || len(report.Anomalies) != 0 || len(report.TimeSeries) != 0 {
		t.Fatalf("degenerate report not empty: %+v", report)
	}
}

func TestDecisionPoolPreference(t *testing.T) {
	// 16-byte pool: 8 zero bytes (uniform 0.0) then 8 0xFF bytes
	// (uniform just under 1.0). Trial 1 must land on "A", trial 2 on "B".
	pool := make([]byte, 16)
	for i := 8; i < 16; i++ {
		pool[i] = 0xFF
	}

	report, err := NewSession(pool).SimulateDecision([]string{"A", "B"}, nil, 2)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]int{"A": 1, "B": 1}
	if !reflect.DeepEqual(report.Distribution, want) {
		t.Fatalf("distribution = %v, want %v", report.Distribution, want)
	}
	// Tie: first-seen option wins.
	if report.Winner != "A" {
		t.Fatalf("winner = %q, want first-seen \"A\" on a tie", report.Winner)
	}
}

func TestDecisionCDFClamp(t *testing.T) {
	// Three equal weights whose thirds do not sum to exactly 1.0; a
	// draw arbitrarily close to 1.0 must still land on the last option.
	pool := make([]byte, 8)
	for i := range pool {
		pool[i] = 0xFF
	}

	report, err := NewSession(pool).SimulateDecision([]string{"A", "B", "C"}, []float64{1.0, 1.0, 1.0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if report.Distribution["C"] != 1 {
		t.Fatalf("distribution = %v, want the near-1.0 draw on \"C\"", report.Distribution)
	}
}

func TestDecisionWeightedSkew(t *testing.T) {
	report, err := NewSession([]byte{5}).SimulateDecision([]string{"A", "B"}, []float64{9.0, 1.0}, 10000)
	if err != nil {
		t.Fatal(err)
	}

	if report.Winner != "A" {
		t.Fatalf("winner = %q, want heavily weighted \"A\"", report.Winner)
	}
	if report.Distribution["A"] < 8500 {
		t.Fatalf("A drew %d of 10000, want roughly 9000", report.Distribution["A"])
	}
}

func TestDecisionTimeSeriesCadence(t *testing.T) {
	report, err := NewSession([]byte{3, 1, 4}).SimulateDecision([]string{"A", "B"}, nil, 100)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.TimeSeries) != 20 {
		t.Fatalf("snapshots = %d, want 20 for 100 trials", len(report.TimeSeries))
	}
	last := report.TimeSeries[len(report.TimeSeries)-1]
	if last.StepIndex != 100 {
		t.Fatalf("final snapshot at step %d, want 100", last.StepIndex)
	}
	sum := 0
	for _, count := range last.Distribution {
		sum += count
	}
	if sum != 100 {
		t.Fatalf("final snapshot sums to %d, want 100", sum)
	}
}

func TestDecisionTimeSeriesSmallTrialCount(t *testing.T) {
	report, err := NewSession([]byte{3, 1, 4}).SimulateDecision([]string{"A", "B"}, nil, 7)
	if err != nil {
		t.Fatal(err)
	}
	// snapshot interval floors to 1, so every trial is captured.
	if len(report.TimeSeries) != 7 {
		t.Fatalf("snapshots = %d, want 7", len(report.TimeSeries))
	}
}

func TestDecisionInvalidWeights(t *testing.T) {
	session := NewSession([]byte{1})

	cases := []struct {
		name    string
		weights []float64
	}{
		{"length mismatch", []float64{1.0}},
		{"nan weight", []float64{1.0, math.NaN()}},
		{"negative weight", []float64{1.0, -1.0}},
		{"zero sum", []float64{0.0, 0.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := session.SimulateDecision([]string{"A", "B"}, tc.weights, 10)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestAnomalyDetection(t *testing.T) {
	options := []string{"A", "B"}
	fractions := []float64{0.5, 0.5}

	// 6000/4000 over 10000 trials: |Z| = 20, far past the threshold.
	flagged := detectAnomalies(options, fractions, []int{6000, 4000}, 10000)
	if len(flagged) != 2 {
		t.Fatalf("anomalies = %v, want both options flagged", flagged)
	}
	if !strings.Contains(flagged[0], "high") || !strings.Contains(flagged[1], "low") {
		t.Fatalf("anomalies = %v, want directions high then low", flagged)
	}
	if !strings.Contains(flagged[0], "z=20.00") {
		t.Fatalf("anomalies = %v, want z reported to two decimals", flagged)
	}

	// 5050/4950: |Z| = 1, within normal variation.
	if unflagged := detectAnomalies(options, fractions, []int{5050, 4950}, 10000); len(unflagged) != 0 {
		t.Fatalf("anomalies = %v, want none for a 5050/4950 split", unflagged)
	}
}

func TestAnomalyZeroStddev(t *testing.T) {
	// p=1 gives stddev 0; Z is defined as 0 and nothing is flagged.
	flagged := detectAnomalies([]string{"A"}, []float64{1.0}, []int{100}, 100)
	if len(flagged) != 0 {
		t.Fatalf("anomalies = %v, want none when stddev is zero", flagged)
	}
}
