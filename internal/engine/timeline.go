package engine

import "sort"

// maxReturnedPaths caps the number of individual paths included in a
// many-worlds result to keep response payloads bounded.
const maxReturnedPaths = 50

// TimelineState is one step of one simulated timeline.
type TimelineState struct {
	StepIndex       int                `json:"step_index"`
	Score           float64            `json:"score"`
	DominantElement string             `json:"dominant_element"`
	ElementalValues map[string]float64 `json:"elemental_values"`
}

// TimelinePath is one fully evolved timeline.
type TimelinePath struct {
	ID         int             `json:"id"`
	Steps      []TimelineState `json:"steps"`
	FinalScore float64         `json:"final_score"`
}

// AggregateStep summarizes all worlds at one step index.
type AggregateStep struct {
	StepIndex           int            `json:"step_index"`
	AvgScore            float64        `json:"avg_score"`
	Variance            float64        `json:"variance"`
	ElementDistribution map[string]int `json:"element_distribution"`
}

// ManyWorldsResult holds a bounded subset of paths plus per-step
// aggregate statistics over every world.
type ManyWorldsResult struct {
	Paths          []TimelinePath  `json:"paths"`
	AggregateStats []AggregateStep `json:"aggregate_stats"`
}

// SimulateTimelines evolves numWorlds branching timelines for duration
// steps, driven by the session's entropy stream. Unlike decision runs
// this consumes the session's shared pool cursor, so successive calls
// continue where the previous one left off.
func (s *SimulationSession) SimulateTimelines(startElements map[string]float64, duration, numWorlds int) ManyWorldsResult {
	stream := newChaChaStream(s.seed)
	elementNames := sortedKeys(startElements)

	allPaths := make([]TimelinePath, 0, numWorlds)
	for world := 0; world < numWorlds; world++ {
		current := make(map[string]float64, len(startElements))
		for k, v := range startElements {
			current[k] = v
		}

		steps := make([]TimelineState, 0, duration)
		finalScore := scoreElements(current)

		for step := 0; step < duration; step++ {
			// One draw picks the element in flux, a second its magnitude.
			flux := s.NextF64(stream)
			boosted := elementForFlux(flux)

			magnitude := s.NextF64(stream)*10.0 - 2.0
			if val, ok := current[boosted]; ok {
				next := val + magnitude
				if next < 0 {
					next = 0
				}
				current[boosted] = next
			}

			dominant := dominantElement(current, elementNames)
			finalScore = scoreElements(current)

			values := make(map[string]float64, len(current))
			for k, v := range current {
				values[k] = v
			}
			steps = append(steps, TimelineState{
				StepIndex:       step,
				Score:           finalScore,
				DominantElement: dominant,
				ElementalValues: values,
			})
		}

		allPaths = append(allPaths, TimelinePath{
			ID:         world,
			Steps:      steps,
			FinalScore: finalScore,
		})
	}

	aggregates := make([]AggregateStep, 0, duration)
	for step := 0; step < duration; step++ {
		var totalScore, scoreSqSum float64
		elementDist := make(map[string]int)

		for _, path := range allPaths {
			state := path.Steps[step]
			totalScore += state.Score
			scoreSqSum += state.Score * state.Score
			elementDist[state.DominantElement]++
		}

		avg := totalScore / float64(numWorlds)
		aggregates = append(aggregates, AggregateStep{
			StepIndex:           step,
			AvgScore:            avg,
			Variance:            scoreSqSum/float64(numWorlds) - avg*avg,
			ElementDistribution: elementDist,
		})
	}

	paths := allPaths
	if len(paths) > maxReturnedPaths {
		paths = paths[:maxReturnedPaths]
	}

	return ManyWorldsResult{
		Paths:          paths,
		AggregateStats: aggregates,
	}
}

// elementForFlux maps a uniform draw onto the five elements in fixed
// 0.2-wide bands.
func elementForFlux(flux float64) string {
	switch int(flux * 5.0) {
	case 0:
		return "Wood"
	case 1:
		return "Fire"
	case 2:
		return "Earth"
	case 3:
		return "Metal"
	default:
		return "Water"
	}
}

// dominantElement returns the highest-valued element, walking names in
// sorted order so ties break deterministically.
func dominantElement(elements map[string]float64, names []string) string {
	dominant := "Unknown"
	maxVal := -1.0
	for _, name := range names {
		if v := elements[name]; v > maxVal {
			maxVal = v
			dominant = name
		}
	}
	return dominant
}

func scoreElements(elements map[string]float64) float64 {
	var sum float64
	for _, v := range elements {
		sum += v
	}
	return sum
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
