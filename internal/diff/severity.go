package diff

import "github.com/citewatch/citewatch/internal/model"

// Direction qualifies a change for severity lookup.
type Direction int

const (
	DirectionNeutral Direction = iota
	// DirectionImproved marks a position change toward rank 1.
	DirectionImproved
	// DirectionWorsened marks a position change away from rank 1.
	DirectionWorsened
)

// Severity is the policy table mapping change type (and direction, for
// position moves) onto severity. Kept apart from the structural diff so the
// ranking can evolve without touching comparison logic. Loss outranks gain:
// disappearing from an answer is weighted worse than appearing in one.
func Severity(ct model.ChangeType, dir Direction) model.Severity {
	switch ct {
	case model.ChangeCitationLost:
		return model.SeverityCritical
	case model.ChangeCitationGained:
		return model.SeverityHigh
	case model.ChangePositionMoved:
		if dir == DirectionImproved {
			return model.SeverityMedium
		}
		return model.SeverityHigh
	case model.ChangeAnswerChanged:
		return model.SeverityMedium
	case model.ChangeSourcesAdded:
		return model.SeverityLow
	default:
		return model.SeverityLow
	}
}
