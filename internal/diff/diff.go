// Package diff compares two snapshots of the same monitor and emits typed,
// severity-ranked change events.
package diff

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citewatch/citewatch/internal/model"
)

// Compare diffs old against new and returns the changes whose types appear in
// tracked. A nil old snapshot yields no changes: the first check of a monitor
// only seeds state. Snapshots with equal checksums short-circuit to an empty
// result regardless of capture time.
func Compare(old, new *model.Snapshot, tracked []model.ChangeType) []model.Change {
	if old == nil || new == nil {
		return nil
	}
	if old.Checksum != "" && old.Checksum == new.Checksum {
		return nil
	}

	isTracked := func(ct model.ChangeType) bool {
		for _, t := range tracked {
			if t == ct {
				return true
			}
		}
		return false
	}

	var changes []model.Change
	emit := func(ct model.ChangeType, dir Direction, oldVal, newVal, desc, impact string) {
		changes = append(changes, model.Change{
			ID:          uuid.New().String(),
			Engine:      new.Engine,
			Type:        ct,
			Severity:    Severity(ct, dir),
			OldValue:    oldVal,
			NewValue:    newVal,
			Description: desc,
			Impact:      impact,
			DetectedAt:  time.Now(),
		})
	}

	oldPos, newPos := old.CitationPosition, new.CitationPosition

	switch {
	case oldPos == nil && newPos != nil:
		if isTracked(model.ChangeCitationGained) {
			emit(model.ChangeCitationGained, DirectionNeutral,
				model.PositionString(oldPos), model.PositionString(newPos),
				fmt.Sprintf("%s is now cited in the %s AI answer at position %d", new.Domain, new.Engine, *newPos),
				"Your domain gained visibility in AI-generated answers for this query.")
		}
	case oldPos != nil && newPos == nil:
		if isTracked(model.ChangeCitationLost) {
			emit(model.ChangeCitationLost, DirectionNeutral,
				model.PositionString(oldPos), model.PositionString(newPos),
				fmt.Sprintf("%s is no longer cited in the %s AI answer", new.Domain, new.Engine),
				"Your domain lost its citation; traffic from AI answers for this query is at risk.")
		}
	case oldPos != nil && newPos != nil && *oldPos != *newPos:
		if isTracked(model.ChangePositionMoved) {
			dir := DirectionWorsened
			impact := "Your citation moved down the source list, reducing its prominence."
			if *newPos < *oldPos {
				dir = DirectionImproved
				impact = "Your citation moved up the source list, increasing its prominence."
			}
			emit(model.ChangePositionMoved, dir,
				model.PositionString(oldPos), model.PositionString(newPos),
				fmt.Sprintf("Citation position moved from %d to %d on %s", *oldPos, *newPos, new.Engine),
				impact)
		}
	}

	// Byte-level comparison rather than checksum so the report can carry a
	// length delta.
	if old.AIAnswer != new.AIAnswer && isTracked(model.ChangeAnswerChanged) {
		emit(model.ChangeAnswerChanged, DirectionNeutral,
			fmt.Sprintf("%d chars", len(old.AIAnswer)), fmt.Sprintf("%d chars", len(new.AIAnswer)),
			fmt.Sprintf("The %s AI answer text changed (%d -> %d chars)", new.Engine, len(old.AIAnswer), len(new.AIAnswer)),
			"The generated answer was rewritten; review how your domain is represented.")
	}

	// Asymmetric on purpose: a shrinking source list is not modeled.
	if new.TotalSources > old.TotalSources && isTracked(model.ChangeSourcesAdded) {
		emit(model.ChangeSourcesAdded, DirectionNeutral,
			fmt.Sprintf("%d sources", old.TotalSources), fmt.Sprintf("%d sources", new.TotalSources),
			fmt.Sprintf("The %s AI answer cites %d sources, up from %d", new.Engine, new.TotalSources, old.TotalSources),
			"New competing sources entered the answer; your relative share of citations shrank.")
	}

	return changes
}
