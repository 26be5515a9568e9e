package model

// Trial is a time-indexed table of signals for one subject/task/side
// combination. It is owned by the caller and read-only to the segmentation
// core. Samples are uniformly or near-uniformly spaced; the sample rate is
// estimated from the time column, never asserted.
type Trial struct {
	// Subject, Task and Side identify the trial within a dataset.
	Subject string
	Task    string
	Side    string

	// Time is the monotonically increasing time column in seconds.
	Time []float64

	// Channels maps standardized channel names (e.g.
	// "grf_vertical_ipsi", "hip_flexion_velocity_ipsi_rad_s") to sample
	// values. Every channel has len(Time) samples.
	Channels map[string][]float64
}

// Len returns the number of samples in the trial.
func (t *Trial) Len() int {
	return len(t.Time)
}

// Channel returns the named channel, or nil if absent.
func (t *Trial) Channel(name string) []float64 {
	if t.Channels == nil {
		return nil
	}
	return t.Channels[name]
}

// HasChannel reports whether the named channel is present with the
// expected sample count.
func (t *Trial) HasChannel(name string) bool {
	c := t.Channel(name)
	return c != nil && len(c) == len(t.Time)
}
