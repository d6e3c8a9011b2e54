package domain

import (
	"math"
	"sort"
	"strconv"
)

// VoteSummary holds statistics computed at reveal time
type VoteSummary struct {
	Average   *float64 `json:"average,omitempty"`
	Median    *float64 `json:"median,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Consensus bool     `json:"consensus"`
	Counted   int      `json:"counted"`
}

// Summarize computes statistics over votes. The unknown card is ignored
// everywhere; numeric statistics are skipped for the t-shirt sequence and
// when no vote parses as a number.
func Summarize(votes map[string]string, sequence SequenceID) VoteSummary {
	counts := make(map[string]int)
	counted := 0
	for _, v := range votes {
		if v == "" || v == UnknownCard {
			continue
		}
		counts[v]++
		counted++
	}

	summary := VoteSummary{Counted: counted}
	if counted == 0 {
		return summary
	}

	summary.Mode = modeOf(counts, sequence)
	summary.Consensus = len(counts) == 1

	if sequence == SequenceTShirt {
		return summary
	}

	numbers := make([]float64, 0, counted)
	for v, n := range counts {
		f, ok := cardValue(v)
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			numbers = append(numbers, f)
		}
	}
	if len(numbers) == 0 {
		return summary
	}

	sort.Float64s(numbers)
	sum := 0.0
	for _, f := range numbers {
		sum += f
	}
	avg := math.Round(sum/float64(len(numbers))*10) / 10

	var median float64
	mid := len(numbers) / 2
	if len(numbers)%2 == 0 {
		median = (numbers[mid-1] + numbers[mid]) / 2
	} else {
		median = numbers[mid]
	}

	summary.Average = &avg
	summary.Median = &median
	return summary
}

// modeOf picks the most frequent value, breaking ties by card order
func modeOf(counts map[string]int, sequence SequenceID) string {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return cardLess(sequence, values[i], values[j])
	})
	return values[0]
}

// cardLess orders cards by their position in the sequence; unknown labels
// sort after known ones, alphabetically
func cardLess(sequence SequenceID, a, b string) bool {
	ia, ib := cardIndex(sequence, a), cardIndex(sequence, b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	}
	return a < b
}

func cardIndex(sequence SequenceID, card string) int {
	for i, c := range sequences[sequence] {
		if c == card {
			return i
		}
	}
	return -1
}

func cardValue(card string) (float64, bool) {
	if card == "½" {
		return 0.5, true
	}
	f, err := strconv.ParseFloat(card, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
