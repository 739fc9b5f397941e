package fbench

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses a batch into the figures the benchmark compares:
// wall-clock elapsed versus the total of requested delays, plus
// round-trip statistics over the successful exchanges.
type Summary struct {
	Requests    int
	Failed      int
	Elapsed     time.Duration
	SumOfDelays float64
	MeanRTT     time.Duration
	MaxRTT      time.Duration
}

func (r Report) Summary() Summary {
	s := Summary{
		Requests:    len(r.Results),
		Elapsed:     r.Elapsed,
		SumOfDelays: r.SumOfDelays,
	}

	rtts := make([]float64, 0, len(r.Results))
	for _, result := range r.Results {
		if result.Err != nil {
			s.Failed++
			continue
		}
		rtts = append(rtts, float64(result.RTT))
		if result.RTT > s.MaxRTT {
			s.MaxRTT = result.RTT
		}
	}
	if len(rtts) > 0 {
		s.MeanRTT = time.Duration(stat.Mean(rtts, nil))
	}
	return s
}
