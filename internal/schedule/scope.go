package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/google/uuid"
)

// Scope is the breadth of an edit or delete.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeFuture Scope = "future"
	ScopeAll    Scope = "all"
)

var ErrNoOccurrence = errors.New("class has no occurrence on that date")

// ParseScope reads a scope, defaulting to single when empty.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeSingle, nil
	case ScopeSingle, ScopeFuture, ScopeAll:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Plan is a resolved scope anchored on a concrete date.
type Plan struct {
	Scope   Scope
	ClassID uuid.UUID
	Anchor  time.Time
}

// ResolveScope anchors the requested scope on date. One-off classes always
// resolve to single on their own date. Single and future need date to be an
// occurrence of the class; all accepts any date.
func ResolveScope(c *model.Class, date time.Time, requested Scope) (Plan, error) {
	if !c.IsRecurring {
		return Plan{Scope: ScopeSingle, ClassID: c.ID, Anchor: DateOnly(c.StartDate)}, nil
	}

	switch requested {
	case ScopeAll:
		return Plan{Scope: ScopeAll, ClassID: c.ID, Anchor: DateOnly(c.StartDate)}, nil
	case ScopeSingle, ScopeFuture:
		if !OccursOn(c, date) {
			return Plan{}, fmt.Errorf("%w: %s", ErrNoOccurrence, DateOnly(date).Format(time.DateOnly))
		}
		return Plan{Scope: requested, ClassID: c.ID, Anchor: DateOnly(date)}, nil
	}
	return Plan{}, fmt.Errorf("unknown scope %q", requested)
}

// Selects reports whether the instance dated d falls under the plan.
func (p Plan) Selects(d time.Time) bool {
	d = DateOnly(d)
	switch p.Scope {
	case ScopeSingle:
		return d.Equal(p.Anchor)
	case ScopeFuture:
		return !d.Before(p.Anchor)
	case ScopeAll:
		return true
	}
	return false
}

// CoversWholeClass reports whether the plan leaves no occurrence of the
// class behind.
func (p Plan) CoversWholeClass(c *model.Class) bool {
	switch p.Scope {
	case ScopeAll:
		return true
	case ScopeFuture:
		return len(ExpandDates(c, c.StartDate, p.TruncatedEnd())) == 0
	case ScopeSingle:
		return !c.IsRecurring
	}
	return false
}

// TruncatedEnd is the end date left after deleting from the anchor onwards.
func (p Plan) TruncatedEnd() time.Time {
	return p.Anchor.AddDate(0, 0, -1)
}
