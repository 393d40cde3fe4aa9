package core

import "fmt"

// Stage is a conversational stage in the staged support model. The
// machine starts every relationship (and every inactivity reset) at
// StageRelationshipBuilding and may move in either direction; there is
// no terminal stage.
type Stage string

const (
	StageRelationshipBuilding Stage = "relationship_building"
	StageExploration          Stage = "exploration"
	StageGoalSetting          Stage = "goal_setting"
	StageActionSupport        Stage = "action_support"
	StageIntervention         Stage = "intervention"
)

// InitialStage is where every new or returning-after-inactivity owner
// starts.
const InitialStage = StageRelationshipBuilding

// Stages lists the known stages in conversational order.
func Stages() []Stage {
	return []Stage{
		StageRelationshipBuilding,
		StageExploration,
		StageGoalSetting,
		StageActionSupport,
		StageIntervention,
	}
}

// Valid reports whether s is a member of the known stage set.
func (s Stage) Valid() bool {
	switch s {
	case StageRelationshipBuilding, StageExploration, StageGoalSetting,
		StageActionSupport, StageIntervention:
		return true
	}
	return false
}

func (s Stage) String() string { return string(s) }

// ParseStage converts a stored or LLM-proposed string into a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return st, nil
}
