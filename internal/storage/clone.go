package storage

import "github.com/camuig/paper-desk/internal/domain"

// ClonePosition deep-copies the nullable fields of p.
func ClonePosition(p domain.Position) domain.Position {
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		p.ExitPrice = &v
	}
	if p.ExitTime != nil {
		v := *p.ExitTime
		p.ExitTime = &v
	}
	if p.Notes != nil {
		v := *p.Notes
		p.Notes = &v
	}
	return p
}

// LessRecent orders positions newest entry_time first, ties by higher id.
func LessRecent(a, b domain.Position) bool {
	if !a.EntryTime.Equal(b.EntryTime) {
		return a.EntryTime.After(b.EntryTime)
	}
	return a.ID > b.ID
}
