package domain

import "github.com/samber/lo"

// Reactions maps a reaction symbol to the identities that selected it.
// Committed states never contain an empty set for a symbol, and never
// contain the same identity under two symbols.
type Reactions map[string][]string

// ReactionOf returns the symbol identityID currently holds, if any.
func (r Reactions) ReactionOf(identityID string) (string, bool) {
	for symbol, ids := range r {
		if lo.Contains(ids, identityID) {
			return symbol, true
		}
	}
	return "", false
}

// Clone returns a deep copy. ToggleReaction works on a copy so the
// read-modify step stays pure and safe to re-run on conflict.
func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for symbol, ids := range r {
		out[symbol] = append([]string(nil), ids...)
	}
	return out
}

// ToggleReaction is the pure read-modify step of the reaction ledger.
// Selecting the symbol already held removes it (un-react); selecting a
// different symbol moves the identity there. The input map is never
// mutated. The result holds identityID under at most one symbol.
func ToggleReaction(current Reactions, identityID, symbol string) Reactions {
	next := current.Clone()

	previous, reacted := next.ReactionOf(identityID)
	if reacted {
		remaining := lo.Without(next[previous], identityID)
		if len(remaining) == 0 {
			delete(next, previous)
		} else {
			next[previous] = remaining
		}
		if previous == symbol {
			// Net effect is un-react.
			return next
		}
	}

	next[symbol] = append(next[symbol], identityID)
	return next
}
