package segment

import "github.com/gaitflow/gaitflow/internal/model"

// bwUnitCutoff separates body-weight-scaled from Newton-scaled GRF signals.
// A vertical GRF in Newtons peaks in the hundreds even for slow walking;
// in body-weight units it stays in single digits.
const bwUnitCutoff = 10.0

// Threshold holds a force threshold in both unit systems. The detector picks
// the applicable one per trial from the signal's overall magnitude.
type Threshold struct {
	// Newtons is the threshold applied to Newton-scaled signals.
	Newtons float64

	// BodyWeight is the threshold applied to body-weight-scaled signals.
	BodyWeight float64
}

// Resolve returns the threshold for a signal whose max absolute value is
// maxAbs. Resolution happens once per trial so every window of the same
// trial is thresholded consistently.
func (t Threshold) Resolve(maxAbs float64) float64 {
	if maxAbs < bwUnitCutoff {
		return t.BodyWeight
	}
	return t.Newtons
}

// FilterOptions holds the post-hoc filtering applied to every archetype's
// raw boundary list.
type FilterOptions struct {
	// IQRMultiplier enables duration outlier filtering when > 0.
	IQRMultiplier float64

	// SkipFirst and SkipLast trim transition cycles at the trial edges.
	SkipFirst int
	SkipLast  int
}

// GaitConfig configures heel-strike-to-heel-strike segmentation.
type GaitConfig struct {
	// GRFChannel is the ipsilateral vertical GRF channel name.
	GRFChannel string

	// ContactThreshold classifies samples as contact vs swing.
	ContactThreshold Threshold

	// MinContactInterval is the debounce window in seconds: transitions of
	// the same kind closer together than this are treated as noise.
	MinContactInterval float64

	// MinStrideDuration and MaxStrideDuration bound plausible stride
	// durations in seconds; strides outside are discarded.
	MinStrideDuration float64
	MaxStrideDuration float64

	Filter FilterOptions
}

// DefaultGaitConfig returns defaults suitable for treadmill and overground
// walking at standard lab conventions.
func DefaultGaitConfig(grfChannel string) GaitConfig {
	return GaitConfig{
		GRFChannel:         grfChannel,
		ContactThreshold:   Threshold{Newtons: 50, BodyWeight: 0.05},
		MinContactInterval: 0.1,
		MinStrideDuration:  0.4,
		MaxStrideDuration:  2.5,
		Filter:             FilterOptions{IQRMultiplier: 1.5},
	}
}

// Validate checks the configuration before any signal processing.
func (c GaitConfig) Validate() error {
	if c.GRFChannel == "" {
		return configErr(ErrMissingChannel, "grf_channel", "no GRF channel configured")
	}
	if c.MinStrideDuration > 0 && c.MaxStrideDuration > 0 && c.MinStrideDuration >= c.MaxStrideDuration {
		return configErr(ErrInvalidThreshold, "stride_duration",
			"min %g must be below max %g", c.MinStrideDuration, c.MaxStrideDuration)
	}
	return nil
}

// StandingActionConfig configures segmentation of a discrete action
// (jump, squat, lunge) bounded by two stable standing periods.
type StandingActionConfig struct {
	// GRFIpsiChannel and GRFContraChannel are summed for standing and
	// flight detection.
	GRFIpsiChannel   string
	GRFContraChannel string

	// VelocityChannels are the joint angular velocity channels whose
	// smoothed cross-channel max drives motion onset/offset detection.
	VelocityChannels []string

	// SmoothingWindow is the moving-average window in seconds applied to
	// each velocity channel before the cross-channel max.
	SmoothingWindow float64

	// StandingThreshold is the minimum summed GRF for stable standing.
	StandingThreshold Threshold

	// VelocityThreshold separates quiet standing from motion, in the
	// velocity channels' units (typically rad/s).
	VelocityThreshold float64

	// MinStableDuration is how long GRF and velocity must hold their
	// standing conditions before standing counts as stable, in seconds.
	MinStableDuration float64

	// RequireFlightPhase demands a sub-interval with summed GRF below
	// FlightThreshold for at least MinFlightDuration seconds inside the
	// action window. Candidates without one are discarded, which
	// distinguishes true jumps from aborted attempts.
	RequireFlightPhase bool
	FlightThreshold    Threshold
	MinFlightDuration  float64

	// ActionType tags emitted boundaries (jump, squat or lunge).
	ActionType model.SegmentType

	Filter FilterOptions
}

// DefaultStandingActionConfig returns defaults for a non-ballistic action.
func DefaultStandingActionConfig(actionType model.SegmentType, grfIpsi, grfContra string, velocityChannels []string) StandingActionConfig {
	return StandingActionConfig{
		GRFIpsiChannel:    grfIpsi,
		GRFContraChannel:  grfContra,
		VelocityChannels:  velocityChannels,
		SmoothingWindow:   0.05,
		StandingThreshold: Threshold{Newtons: 400, BodyWeight: 0.5},
		VelocityThreshold: 0.3,
		MinStableDuration: 0.3,
		FlightThreshold:   Threshold{Newtons: 50, BodyWeight: 0.05},
		MinFlightDuration: 0.05,
		ActionType:        actionType,
	}
}

// Validate checks the configuration before any signal processing.
func (c StandingActionConfig) Validate() error {
	if c.GRFIpsiChannel == "" {
		return configErr(ErrMissingChannel, "grf_ipsi_channel", "no ipsilateral GRF channel configured")
	}
	if len(c.VelocityChannels) == 0 {
		return configErr(ErrMissingChannel, "velocity_channels", "no velocity channels configured")
	}
	if c.VelocityThreshold <= 0 {
		return configErr(ErrInvalidThreshold, "velocity_threshold",
			"must be positive, got %g", c.VelocityThreshold)
	}
	if c.MinStableDuration <= 0 {
		return configErr(ErrInvalidThreshold, "min_stable_duration",
			"must be positive, got %g", c.MinStableDuration)
	}
	switch c.ActionType {
	case model.SegmentJump, model.SegmentSquat, model.SegmentLunge:
	default:
		return configErr(ErrInvalidThreshold, "action_type",
			"%q is not a standing action", c.ActionType)
	}
	return nil
}

// SitStandConfig configures sit-to-stand / stand-to-sit transfer
// segmentation over combined ipsi+contra GRF.
type SitStandConfig struct {
	GRFIpsiChannel   string
	GRFContraChannel string

	VelocityChannels []string
	SmoothingWindow  float64

	// SittingThreshold and StandingThreshold define the three GRF states.
	// The gap between them is a deliberate hysteresis band: GRF inside
	// (sitting, standing) is "transition" and never flips the state
	// machine directly, which prevents flutter near a single threshold.
	SittingThreshold  Threshold
	StandingThreshold Threshold

	// VelocityThreshold locates the motion onset/offset inside the GRF
	// transition window.
	VelocityThreshold float64

	// MarginBefore and MarginAfter expand the velocity-defined motion
	// window, in seconds, to capture pre/post stabilization.
	MarginBefore float64
	MarginAfter  float64

	// TransferType selects the direction: sit_to_stand or stand_to_sit.
	TransferType model.SegmentType

	Filter FilterOptions
}

// DefaultSitStandConfig returns defaults matching common force-plate
// transfer protocols.
func DefaultSitStandConfig(transferType model.SegmentType, grfIpsi, grfContra string, velocityChannels []string) SitStandConfig {
	return SitStandConfig{
		GRFIpsiChannel:    grfIpsi,
		GRFContraChannel:  grfContra,
		VelocityChannels:  velocityChannels,
		SmoothingWindow:   0.05,
		SittingThreshold:  Threshold{Newtons: 400, BodyWeight: 0.5},
		StandingThreshold: Threshold{Newtons: 600, BodyWeight: 0.8},
		VelocityThreshold: 0.3,
		MarginBefore:      0.5,
		MarginAfter:       0.5,
		TransferType:      transferType,
	}
}

// Validate checks the configuration before any signal processing.
func (c SitStandConfig) Validate() error {
	if c.GRFIpsiChannel == "" {
		return configErr(ErrMissingChannel, "grf_ipsi_channel", "no ipsilateral GRF channel configured")
	}
	if len(c.VelocityChannels) == 0 {
		return configErr(ErrMissingChannel, "velocity_channels", "no velocity channels configured")
	}
	if c.SittingThreshold.Newtons >= c.StandingThreshold.Newtons {
		return configErr(ErrInvalidThreshold, "sitting_threshold",
			"sitting threshold %g N must be below standing threshold %g N",
			c.SittingThreshold.Newtons, c.StandingThreshold.Newtons)
	}
	if c.SittingThreshold.BodyWeight >= c.StandingThreshold.BodyWeight {
		return configErr(ErrInvalidThreshold, "sitting_threshold",
			"sitting threshold %g BW must be below standing threshold %g BW",
			c.SittingThreshold.BodyWeight, c.StandingThreshold.BodyWeight)
	}
	if c.VelocityThreshold <= 0 {
		return configErr(ErrInvalidThreshold, "velocity_threshold",
			"must be positive, got %g", c.VelocityThreshold)
	}
	switch c.TransferType {
	case model.SegmentSitToStand, model.SegmentStandToSit:
	default:
		return configErr(ErrInvalidThreshold, "transfer_type",
			"%q is not a sit-stand transfer", c.TransferType)
	}
	return nil
}
