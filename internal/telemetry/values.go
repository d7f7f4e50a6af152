package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CounterVecValue reads the current value of a CounterVec for the given label set.
// Returns 0 when the label combination has not been observed yet.
func CounterVecValue(cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	var value float64
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if labelsMatch(dm.GetLabel(), labels) {
			value = dm.GetCounter().GetValue()
		}
	}
	return value
}

// CounterValue reads the value of a plain (non-vec) Counter.
func CounterValue(c prometheus.Counter) float64 {
	var dm dto.Metric
	if err := c.Write(&dm); err != nil {
		return 0
	}
	return dm.GetCounter().GetValue()
}

// labelsMatch returns true when all entries in want appear in got.
func labelsMatch(got []*dto.LabelPair, want prometheus.Labels) bool {
	for k, v := range want {
		found := false
		for _, lp := range got {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
