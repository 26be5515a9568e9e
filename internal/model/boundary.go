// Package model defines core data structures for GaitFlow.
package model

// SegmentType tags a detected cycle/action instance.
type SegmentType uint8

const (
	SegmentUnknown SegmentType = iota
	SegmentStride
	SegmentJump
	SegmentSquat
	SegmentLunge
	SegmentSitToStand
	SegmentStandToSit
)

// String returns the segment type name.
func (t SegmentType) String() string {
	switch t {
	case SegmentStride:
		return "stride"
	case SegmentJump:
		return "jump"
	case SegmentSquat:
		return "squat"
	case SegmentLunge:
		return "lunge"
	case SegmentSitToStand:
		return "sit_to_stand"
	case SegmentStandToSit:
		return "stand_to_sit"
	default:
		return "unknown"
	}
}

// ParseSegmentType parses a segment type string.
func ParseSegmentType(s string) SegmentType {
	switch s {
	case "stride":
		return SegmentStride
	case "jump":
		return SegmentJump
	case "squat":
		return SegmentSquat
	case "lunge":
		return SegmentLunge
	case "sit_to_stand", "sts":
		return SegmentSitToStand
	case "stand_to_sit":
		return SegmentStandToSit
	default:
		return SegmentUnknown
	}
}

// SegmentBoundary describes one detected cycle or action instance within a
// trial. Index bounds are inclusive on both ends: the segment covers samples
// [StartIndex, EndIndex]. Boundaries are immutable value objects; downstream
// filters produce new slices rather than mutating elements.
type SegmentBoundary struct {
	// StartIndex and EndIndex are sample offsets into the trial, inclusive.
	StartIndex int
	EndIndex   int

	// StartTime, EndTime and Duration are derived seconds.
	// Duration = EndTime - StartTime, always > 0 for emitted boundaries.
	StartTime float64
	EndTime   float64
	Duration  float64

	// Type tags the boundary with its cycle kind.
	Type SegmentType

	// Events maps named sub-events (e.g. "toe_off", "flight_start") to a
	// sample index within [StartIndex, EndIndex].
	Events map[string]int

	// Metadata holds diagnostic scalars (e.g. "flight_duration",
	// "peak_velocity") not needed for correctness but useful downstream.
	Metadata map[string]float64
}

// Valid reports whether the boundary satisfies the core invariant.
func (b SegmentBoundary) Valid() bool {
	return b.StartIndex < b.EndIndex && b.Duration > 0
}

// Len returns the number of samples covered by the boundary.
func (b SegmentBoundary) Len() int {
	return b.EndIndex - b.StartIndex + 1
}

// GaitEvents holds the ordered gait events detected in one trial.
// Both index sequences are strictly increasing; consumers assume heel
// strikes and toe-offs alternate stance start/end but this is not enforced.
type GaitEvents struct {
	HeelStrikes []int
	ToeOffs     []int
}
