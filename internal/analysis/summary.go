package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Final  float64
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%d mean=%.6f std=%.6f min=%.6f max=%.6f final=%.6f",
		s.N, s.Mean, s.StdDev, s.Min, s.Max, s.Final)
}

func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	s := Summary{
		N:     len(data),
		Mean:  stat.Mean(data, nil),
		Min:   floats.Min(data),
		Max:   floats.Max(data),
		Final: data[len(data)-1],
	}
	if len(data) > 1 {
		s.StdDev = stat.StdDev(data, nil)
	}
	return s
}

// SettlingTime returns the first time after which every later sample stays
// within tol of the final value, or -1 if times and data disagree in length.
func SettlingTime(times, data []float64, tol float64) float64 {
	if len(times) != len(data) || len(data) == 0 {
		return -1
	}
	final := data[len(data)-1]
	idx := len(data) - 1
	for i := len(data) - 1; i >= 0; i-- {
		if math.Abs(data[i]-final) > tol {
			break
		}
		idx = i
	}
	return times[idx]
}
