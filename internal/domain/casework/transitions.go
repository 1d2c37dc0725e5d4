package casework

import (
	"fmt"
	"slices"

	"github.com/scaregistry/backend/internal/domain/shared"
)

type edge[S ~string] struct {
	from       S
	transition Transition
}

// Row declares one or more edges sharing a transition and target status.
// A row with Stay set keeps the source status.
type Row[S ~string] struct {
	From []S
	On   Transition
	To   S
	Stay bool
}

// TransitionTable maps (status, transition) pairs to the resulting status
type TransitionTable[S ~string] struct {
	entity EntityType
	edges  map[edge[S]]S
	order  []Transition
}

// NewTransitionTable builds a table from rows. Duplicate edges panic since
// tables are package-level data.
func NewTransitionTable[S ~string](entity EntityType, rows ...Row[S]) TransitionTable[S] {
	t := TransitionTable[S]{
		entity: entity,
		edges:  make(map[edge[S]]S),
	}
	for _, r := range rows {
		if !slices.Contains(t.order, r.On) {
			t.order = append(t.order, r.On)
		}
		for _, from := range r.From {
			e := edge[S]{from: from, transition: r.On}
			if _, dup := t.edges[e]; dup {
				panic(fmt.Sprintf("casework: duplicate %s edge %s --%s-->", entity, from, r.On))
			}
			to := r.To
			if r.Stay {
				to = from
			}
			t.edges[e] = to
		}
	}
	return t
}

// Next returns the status reached by taking transition t from status from
func (t TransitionTable[S]) Next(from S, tr Transition) (S, error) {
	to, ok := t.edges[edge[S]{from: from, transition: tr}]
	if !ok {
		var zero S
		return zero, NewIllegalTransitionError(t.entity, string(from), tr)
	}
	return to, nil
}

// Allows reports whether an edge exists
func (t TransitionTable[S]) Allows(from S, tr Transition) bool {
	_, ok := t.edges[edge[S]{from: from, transition: tr}]
	return ok
}

// Available lists the transitions leaving from, in declaration order
func (t TransitionTable[S]) Available(from S) []Transition {
	var out []Transition
	for _, tr := range t.order {
		if t.Allows(from, tr) {
			out = append(out, tr)
		}
	}
	return out
}

// IsTerminal reports whether no edge leaves status s
func (t TransitionTable[S]) IsTerminal(s S) bool {
	return len(t.Available(s)) == 0
}

// Transitions lists every transition name in the table
func (t TransitionTable[S]) Transitions() []Transition {
	return slices.Clone(t.order)
}

// NewIllegalTransitionError names the entity, status and rejected transition
func NewIllegalTransitionError(entity EntityType, status string, tr Transition) *shared.DomainError {
	return shared.NewDomainError(
		shared.CodeIllegalTransition,
		fmt.Sprintf("%s in status %q cannot %s", entity, status, tr),
	)
}
