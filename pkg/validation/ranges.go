// Package validation checks segmented trial data against physiological
// plausibility ranges and verifies written trial tables.
package validation

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gaitflow/gaitflow/internal/model"
)

// Severity indicates the importance of a validation finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Range bounds plausible values for one signal channel.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// MaxNaNFraction is the tolerated fraction of NaN samples before the
	// channel is flagged, 0 meaning the default of 0.1.
	MaxNaNFraction float64 `yaml:"max_nan_fraction"`
}

// Ranges maps channel names to their plausibility ranges.
type Ranges map[string]Range

// DefaultRanges covers common lower-limb channels: vertical GRF in Newtons,
// joint angles in degrees and joint velocities in rad/s.
func DefaultRanges() Ranges {
	return Ranges{
		"grf_vertical_ipsi":   {Min: -100, Max: 5000},
		"grf_vertical_contra": {Min: -100, Max: 5000},
		"knee_angle_ipsi":     {Min: -20, Max: 160},
		"hip_angle_ipsi":      {Min: -40, Max: 140},
		"ankle_angle_ipsi":    {Min: -60, Max: 60},
		"knee_velocity_ipsi":  {Min: -25, Max: 25},
		"hip_velocity_ipsi":   {Min: -25, Max: 25},
	}
}

// LoadRanges reads a channel range file in YAML.
func LoadRanges(path string) (Ranges, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ranges Ranges
	if err := yaml.Unmarshal(data, &ranges); err != nil {
		return nil, fmt.Errorf("validation: parse ranges %s: %w", path, err)
	}
	for name, r := range ranges {
		if r.Min >= r.Max {
			return nil, fmt.Errorf("validation: range for %s has min %g >= max %g", name, r.Min, r.Max)
		}
	}
	return ranges, nil
}

// Finding is one validation issue on a trial channel.
type Finding struct {
	Subject  string
	Task     string
	Channel  string
	Severity Severity
	Message  string

	// OutOfRange and NaNCount count affected samples.
	OutOfRange int
	NaNCount   int
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s/%s %s: %s", f.Severity, f.Subject, f.Task, f.Channel, f.Message)
}

// CheckTrial validates every ranged channel of the trial. Channels without
// a configured range are skipped.
func CheckTrial(trial *model.Trial, ranges Ranges) []Finding {
	var findings []Finding

	for name, r := range ranges {
		signal, ok := trial.Channels[name]
		if !ok {
			continue
		}

		var out, nan int
		for _, v := range signal {
			switch {
			case math.IsNaN(v):
				nan++
			case v < r.Min || v > r.Max:
				out++
			}
		}

		if out > 0 {
			findings = append(findings, Finding{
				Subject:    trial.Subject,
				Task:       trial.Task,
				Channel:    name,
				Severity:   SeverityError,
				OutOfRange: out,
				Message:    fmt.Sprintf("%d samples outside [%g, %g]", out, r.Min, r.Max),
			})
		}

		maxNaN := r.MaxNaNFraction
		if maxNaN == 0 {
			maxNaN = 0.1
		}
		if n := len(signal); n > 0 && float64(nan)/float64(n) > maxNaN {
			findings = append(findings, Finding{
				Subject:  trial.Subject,
				Task:     trial.Task,
				Channel:  name,
				Severity: SeverityWarning,
				NaNCount: nan,
				Message:  fmt.Sprintf("%.1f%% NaN samples exceeds %.1f%% tolerance", 100*float64(nan)/float64(n), 100*maxNaN),
			})
		}
	}
	return findings
}
