/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

// Skip reports whether an id should be passed over when looking for the
// next actor (eliminated, resting, already acted, finished...).
type Skip func(id string) bool

// Next returns the first id after current, wrapping circularly, that skip
// does not exclude. ok is false when nobody is left to act, which callers
// treat as round completion rather than normal advancement. current itself
// is considered last, so a lone eligible actor gets the turn back.
func Next(order []string, current string, skip Skip) (next string, ok bool) {
	if len(order) == 0 {
		return "", false
	}

	start := indexOf(order, current)

	for i := 1; i <= len(order); i++ {
		id := order[(start+i+len(order))%len(order)]
		if skip == nil || !skip(id) {
			return id, true
		}
	}

	return "", false
}

// First returns the first id in order that skip does not exclude.
func First(order []string, skip Skip) (string, bool) {
	for _, id := range order {
		if skip == nil || !skip(id) {
			return id, true
		}
	}

	return "", false
}

// Survivors removes excluded ids from order, keeping the relative order of
// the rest.
func Survivors(order []string, out Skip) []string {
	kept := make([]string, 0, len(order))
	for _, id := range order {
		if out != nil && out(id) {
			continue
		}
		kept = append(kept, id)
	}

	return kept
}

// Starter picks the starting actor of a new round: preferred when it is
// still in play, otherwise the first surviving id.
func Starter(order []string, preferred string, out Skip) (string, bool) {
	if preferred != "" && indexOf(order, preferred) >= 0 && (out == nil || !out(preferred)) {
		return preferred, true
	}

	return First(order, out)
}

// StarterAfter picks preferred when still in play, otherwise the next
// surviving id after it in the original order.
func StarterAfter(order []string, preferred string, out Skip) (string, bool) {
	if preferred != "" && indexOf(order, preferred) >= 0 && (out == nil || !out(preferred)) {
		return preferred, true
	}
	if indexOf(order, preferred) < 0 {
		return First(order, out)
	}

	return Next(order, preferred, out)
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	return indexOf(ids, id) >= 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}

	return -1
}
