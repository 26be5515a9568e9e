package segment

import (
	"github.com/gaitflow/gaitflow/internal/model"
)

// synthTrial builds a trial with a uniform time column at the given rate.
func synthTrial(task string, rate float64, channels map[string][]float64) *model.Trial {
	n := 0
	for _, ch := range channels {
		n = len(ch)
		break
	}
	time := make([]float64, n)
	for i := range time {
		time[i] = float64(i) / rate
	}
	return &model.Trial{
		Subject:  "SUB01",
		Task:     task,
		Side:     "ipsi",
		Time:     time,
		Channels: channels,
	}
}

// repeat builds a signal from (value, count) runs.
func repeat(runs ...[2]float64) []float64 {
	var out []float64
	for _, r := range runs {
		for i := 0; i < int(r[1]); i++ {
			out = append(out, r[0])
		}
	}
	return out
}
