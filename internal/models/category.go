package models

import "time"

// CategoryTag is a node in the genre taxonomy. Top-level tags have an
// empty ParentSlug; sub-genres point at their parent's slug. The tree is
// two levels deep today but nothing downstream depends on that.
type CategoryTag struct {
	Slug       string
	Name       string
	ParentSlug string
	CreatedAt  time.Time
}
