package engine

import (
	"reflect"
	"testing"
)

func TestManyWorldsShape(t *testing.T) {
	session := NewSession([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	start := map[string]float64{"Wood": 20.0, "Fire": 20.0}

	result := session.SimulateTimelines(start, 10, 5)

	if len(result.Paths) != 5 {
		t.Fatalf("paths = %d, want 5", len(result.Paths))
	}
	if len(result.Paths[0].Steps) != 10 {
		t.Fatalf("steps = %d, want 10", len(result.Paths[0].Steps))
	}
	if len(result.AggregateStats) != 10 {
		t.Fatalf("aggregate steps = %d, want 10", len(result.AggregateStats))
	}
}

func TestManyWorldsPathCap(t *testing.T) {
	session := NewSession([]byte{9, 9, 9})
	start := map[string]float64{"Water": 10.0}

	result := session.SimulateTimelines(start, 2, 60)

	if len(result.Paths) != maxReturnedPaths {
		t.Fatalf("paths = %d, want capped at %d", len(result.Paths), maxReturnedPaths)
	}
	// Aggregates still cover every world.
	if dist := result.AggregateStats[0].ElementDistribution["Water"]; dist != 60 {
		t.Fatalf("element distribution counts %d worlds, want 60", dist)
	}
}

func TestManyWorldsDeterministicForFixedEntropy(t *testing.T) {
	start := map[string]float64{"Wood": 5.0, "Metal": 5.0, "Water": 5.0}

	a := NewSession([]byte{11, 22, 33}).SimulateTimelines(start, 6, 4)
	b := NewSession([]byte{11, 22, 33}).SimulateTimelines(start, 6, 4)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same entropy produced divergent timelines")
	}
}

func TestManyWorldsElementsNeverNegative(t *testing.T) {
	session := NewSession([]byte{0xFE, 0xED})
	start := map[string]float64{"Fire": 0.5}

	result := session.SimulateTimelines(start, 50, 3)

	for _, path := range result.Paths {
		for _, step := range path.Steps {
			for name, val := range step.ElementalValues {
				if val < 0 {
					t.Fatalf("element %s went negative (%v) at step %d", name, val, step.StepIndex)
				}
			}
		}
	}
}

func TestElementForFluxBands(t *testing.T) {
	cases := map[float64]string{
		0.0:  "Wood",
		0.19: "Wood",
		0.2:  "Fire",
		0.45: "Earth",
		0.65: "Metal",
		0.85: "Water",
		0.99: "Water",
	}
	for flux, want := range cases {
		if got := elementForFlux(flux); got != want {
			t.Fatalf("elementForFlux(%v) = %q, want %q", flux, got, want)
		}
	}
}
