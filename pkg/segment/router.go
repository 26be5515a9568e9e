package segment

import (
	"github.com/gaitflow/gaitflow/internal/model"
)

// Archetype identifies one of the three structurally distinct segmentation
// behaviors.
type Archetype uint8

const (
	ArchetypeUnknown Archetype = iota
	ArchetypeGait
	ArchetypeStandingAction
	ArchetypeSitStandTransfer
)

// String returns the archetype name.
func (a Archetype) String() string {
	switch a {
	case ArchetypeGait:
		return "gait"
	case ArchetypeStandingAction:
		return "standing_action"
	case ArchetypeSitStandTransfer:
		return "sit_stand_transfer"
	default:
		return "unknown"
	}
}

// ParseArchetype parses an archetype name.
func ParseArchetype(s string) Archetype {
	switch s {
	case "gait":
		return ArchetypeGait
	case "standing_action", "standing-action":
		return ArchetypeStandingAction
	case "sit_stand_transfer", "sit-stand-transfer", "sit_stand":
		return ArchetypeSitStandTransfer
	default:
		return ArchetypeUnknown
	}
}

// TaskMap assigns dataset task names to archetypes. It is built once and
// passed into the router by reference; there is no package-level table, so
// archetype assignment stays testable and overridable per call site.
type TaskMap map[string]Archetype

// DefaultTaskMap covers the task vocabulary of standardized locomotion
// datasets.
func DefaultTaskMap() TaskMap {
	return TaskMap{
		"level_walking":   ArchetypeGait,
		"incline_walking": ArchetypeGait,
		"decline_walking": ArchetypeGait,
		"stair_ascent":    ArchetypeGait,
		"stair_descent":   ArchetypeGait,
		"run":             ArchetypeGait,
		"jump":            ArchetypeStandingAction,
		"squat":           ArchetypeStandingAction,
		"lunge":           ArchetypeStandingAction,
		"sit_to_stand":    ArchetypeSitStandTransfer,
		"stand_to_sit":    ArchetypeSitStandTransfer,
	}
}

// Router dispatches a task name to the segmenter for its archetype,
// forwarding the archetype's configuration. A wrong archetype produces
// semantically meaningless boundaries, so unknown task names fail with a
// ConfigurationError instead of defaulting.
type Router struct {
	tasks    TaskMap
	gait     GaitConfig
	action   StandingActionConfig
	sitStand SitStandConfig
}

// NewRouter builds a router over an immutable task map and the three
// archetype configurations.
func NewRouter(tasks TaskMap, gait GaitConfig, action StandingActionConfig, sitStand SitStandConfig) *Router {
	return &Router{
		tasks:    tasks,
		gait:     gait,
		action:   action,
		sitStand: sitStand,
	}
}

// Resolve maps a task name to its archetype and a configured segmenter.
// Task names that are themselves segment types (jump, squat, lunge,
// sit_to_stand, stand_to_sit) specialize the base configuration; jumps
// additionally require a flight phase.
func (r *Router) Resolve(task string) (Archetype, Segmenter, error) {
	archetype, ok := r.tasks[task]
	if !ok {
		return ArchetypeUnknown, nil, configErr(ErrUnknownTask, task, "task has no archetype mapping")
	}

	switch archetype {
	case ArchetypeGait:
		seg, err := NewGaitSegmenter(r.gait)
		return archetype, seg, err

	case ArchetypeStandingAction:
		cfg := r.action
		switch t := model.ParseSegmentType(task); t {
		case model.SegmentJump:
			cfg.ActionType = t
			cfg.RequireFlightPhase = true
		case model.SegmentSquat, model.SegmentLunge:
			cfg.ActionType = t
		}
		seg, err := NewStandingActionSegmenter(cfg)
		return archetype, seg, err

	case ArchetypeSitStandTransfer:
		cfg := r.sitStand
		switch t := model.ParseSegmentType(task); t {
		case model.SegmentSitToStand, model.SegmentStandToSit:
			cfg.TransferType = t
		}
		seg, err := NewSitStandSegmenter(cfg)
		return archetype, seg, err

	default:
		return ArchetypeUnknown, nil, configErr(ErrUnknownTask, task, "task mapped to unknown archetype")
	}
}

// Segment resolves the trial's task and runs the segmenter on it.
func (r *Router) Segment(trial *model.Trial) (*Result, error) {
	_, seg, err := r.Resolve(trial.Task)
	if err != nil {
		return nil, err
	}
	return seg.Segment(trial)
}
