// Package reorder computes dense display orders. Every function is pure: the
// input slice is never modified.
package reorder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// ErrIndexOutOfRange is returned when a move references a position outside
// the sequence.
var ErrIndexOutOfRange = errors.New("reorder: index out of range")

// Move removes the element at src, reinserts it at dst and renumbers the
// result so that order == index+1.
func Move[T types.Element[T]](items []T, src, dst int) ([]T, error) {
	n := len(items)
	if src < 0 || src >= n || dst < 0 || dst >= n {
		return nil, fmt.Errorf("%w: move %d -> %d in %d items", ErrIndexOutOfRange, src, dst, n)
	}
	out := slices.Clone(items)
	moved := out[src]
	out = slices.Delete(out, src, src+1)
	out = slices.Insert(out, dst, moved)
	return Renumber(out), nil
}

// Renumber returns a copy of items with order set to index+1.
func Renumber[T types.Element[T]](items []T) []T {
	out := make([]T, len(items))
	for i, e := range items {
		out[i] = types.WithOrder(e, i+1)
	}
	return out
}

// Arrange reorders items to follow ids and renumbers them. ids must be a
// permutation of the ids in items.
func Arrange[T types.Element[T]](items []T, ids []string) ([]T, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("reorder: got %d ids for %d items", len(ids), len(items))
	}
	byID := make(map[string]T, len(items))
	for _, e := range items {
		byID[e.Meta().ID] = e
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("reorder: id %q is unknown or repeated", id)
		}
		delete(byID, id)
		out = append(out, e)
	}
	return Renumber(out), nil
}

// SortByOrder returns a copy sorted by order ascending. Ties keep their input
// position.
func SortByOrder[T types.Element[T]](items []T) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return a.Meta().Order - b.Meta().Order
	})
	return out
}

// IsDense reports whether the orders of items are exactly {1..N}.
func IsDense[T types.Element[T]](items []T) bool {
	seen := make([]bool, len(items)+1)
	for _, e := range items {
		o := e.Meta().Order
		if o < 1 || o > len(items) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

// IDs returns the ids of items in sequence.
func IDs[T types.Element[T]](items []T) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Meta().ID
	}
	return out
}

// Orders returns the order values of items in sequence.
func Orders[T types.Element[T]](items []T) []int {
	out := make([]int, len(items))
	for i, e := range items {
		out[i] = e.Meta().Order
	}
	return out
}
