package triage

import (
	"encoding/json"
	"math"
	"time"
)

// AlgorithmMergeSort is the algorithm name reported in Metrics.
const AlgorithmMergeSort = "Merge Sort (stable)"

// Metrics describes one sort run.
type Metrics struct {
	Algorithm   string
	Comparisons int
	Elapsed     time.Duration
	Stable      bool
}

// ElapsedMillis is the run duration in milliseconds rounded to 3 decimals.
func (m Metrics) ElapsedMillis() float64 {
	ms := float64(m.Elapsed) / float64(time.Millisecond)
	return math.Round(ms*1000) / 1000
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Algorithm     string  `json:"algorithm"`
		Comparisons   int     `json:"comparisons"`
		ElapsedMillis float64 `json:"elapsed_ms"`
		Stable        bool    `json:"stable"`
	}{m.Algorithm, m.Comparisons, m.ElapsedMillis(), m.Stable})
}

// Result is a sorted queue and the metrics of the run that produced it.
type Result struct {
	Patients []Patient `json:"patients"`
	Metrics  Metrics   `json:"metrics"`
}

// counter accumulates key comparisons across one sort run.
type counter struct {
	key         KeyFunc
	comparisons int
}

func (c *counter) lessOrEqual(a, b Patient) bool {
	c.comparisons++
	return c.key(a).LessOrEqual(c.key(b))
}

// MergeSort returns a stably sorted copy of patients, ascending by key. A nil
// key sorts by PriorityKey. The input slice is not modified.
func MergeSort(patients []Patient, key KeyFunc) Result {
	if key == nil {
		key = PriorityKey
	}
	start := time.Now()

	in := make([]Patient, len(patients))
	copy(in, patients)

	c := &counter{key: key}
	sorted := mergeSort(in, c)

	return Result{
		Patients: sorted,
		Metrics: Metrics{
			Algorithm:   AlgorithmMergeSort,
			Comparisons: c.comparisons,
			Elapsed:     time.Since(start),
			Stable:      true,
		},
	}
}

func mergeSort(lst []Patient, c *counter) []Patient {
	if len(lst) <= 1 {
		return lst
	}
	mid := len(lst) / 2
	left := mergeSort(lst[:mid], c)
	right := mergeSort(lst[mid:], c)
	return merge(left, right, c)
}

// merge takes from left on ties so equal keys keep their original order.
func merge(left, right []Patient, c *counter) []Patient {
	res := make([]Patient, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if c.lessOrEqual(left[i], right[j]) {
			res = append(res, left[i])
			i++
		} else {
			res = append(res, right[j])
			j++
		}
	}
	res = append(res, left[i:]...)
	res = append(res, right[j:]...)
	return res
}
