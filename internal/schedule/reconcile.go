package schedule

import (
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
)

// Diff is the set of instance dates to add and remove so stored instances
// match the template.
type Diff struct {
	Create []time.Time
	Delete []time.Time
}

func (d Diff) Empty() bool { return len(d.Create) == 0 && len(d.Delete) == 0 }

// Reconcile compares the template's dates with the stored ones. Dates in
// exceptions were deleted individually and are never recreated.
func Reconcile(c *model.Class, existing, exceptions []time.Time) Diff {
	have := dateSet(existing)
	skip := dateSet(exceptions)

	var diff Diff
	want := make(map[time.Time]struct{})
	for _, d := range AllDates(c) {
		want[d] = struct{}{}
		if _, ok := have[d]; ok {
			continue
		}
		if _, ok := skip[d]; ok {
			continue
		}
		diff.Create = append(diff.Create, d)
	}
	for _, d := range existing {
		d = DateOnly(d)
		if _, ok := want[d]; !ok {
			diff.Delete = append(diff.Delete, d)
		}
	}
	return diff
}

func dateSet(dates []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[DateOnly(d)] = struct{}{}
	}
	return set
}
