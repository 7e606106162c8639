package record

import "sort"

// Dedupe collapses sessions sharing an id into one record and
// returns them newest first.
//
// For each id the first-seen record is kept unless a later
// record has a strictly later CreatedAt; when either timestamp
// is missing the stored record stays. Records without an id are
// dropped. Ordering is stable over first-seen order, so the same
// input always yields the same directory.
func Dedupe(sessions []Session) []Session {
	pos := make(map[string]int, len(sessions))
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			continue
		}
		i, ok := pos[s.ID]
		if !ok {
			pos[s.ID] = len(out)
			out = append(out, s)
			continue
		}
		prev := out[i]
		if s.CreatedAt != nil && prev.CreatedAt != nil &&
			s.CreatedAt.After(*prev.CreatedAt) {
			out[i] = s
		}
	}
	SortRecent(out)
	return out
}

// SortRecent orders sessions by CreatedAt descending, undated
// sessions last. The sort is stable.
func SortRecent(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return Newer(sessions[i], sessions[j])
	})
}

// Newer reports whether a sorts before b in recency order.
func Newer(a, b Session) bool {
	switch {
	case a.CreatedAt == nil:
		return false
	case b.CreatedAt == nil:
		return true
	default:
		return a.CreatedAt.After(*b.CreatedAt)
	}
}
