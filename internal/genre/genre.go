// Package genre resolves category-tag matching across the genre
// taxonomy. A reviewer registered for a broad genre matches tracks
// tagged with any of its sub-genres and vice versa.
package genre

import (
	"context"
	"fmt"
	"sort"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

// Hierarchy is an immutable snapshot of the category taxonomy.
type Hierarchy struct {
	parents  map[string]string   // child slug -> parent slug
	children map[string][]string // parent slug -> child slugs
	known    map[string]bool
}

// NewHierarchy builds a snapshot from category tags.
func NewHierarchy(cats []*models.CategoryTag) *Hierarchy {
	h := &Hierarchy{
		parents:  make(map[string]string),
		children: make(map[string][]string),
		known:    make(map[string]bool),
	}
	for _, c := range cats {
		h.known[c.Slug] = true
		if c.ParentSlug != "" {
			h.parents[c.Slug] = c.ParentSlug
			h.children[c.ParentSlug] = append(h.children[c.ParentSlug], c.Slug)
		}
	}
	return h
}

// Load builds a hierarchy snapshot from the store. An empty taxonomy is
// a configuration fault: the engine must never match against nothing.
func Load(ctx context.Context, s store.Store) (*Hierarchy, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category hierarchy: %w", err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("category hierarchy is empty")
	}
	return NewHierarchy(cats), nil
}

// Expand widens a tag set to its equivalence set: each tag plus its
// parent (if any) plus all of its children (if it is a parent),
// repeated until the set is stable. The closure makes Expand idempotent
// without assuming a fixed taxonomy depth. A tag with neither parent
// nor children maps to itself only.
func (h *Hierarchy) Expand(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	frontier := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if !seen[slug] {
			seen[slug] = true
			frontier = append(frontier, slug)
		}
	}

	for len(frontier) > 0 {
		var next []string
		for _, slug := range frontier {
			if parent, ok := h.parents[slug]; ok && !seen[parent] {
				seen[parent] = true
				next = append(next, parent)
			}
			for _, child := range h.children[slug] {
				if !seen[child] {
					seen[child] = true
					next = append(next, child)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(seen))
	for slug := range seen {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// Overlaps reports whether any of the candidate's tags fall inside the
// track's expanded tag set.
func (h *Hierarchy) Overlaps(trackTags, candidateTags []string) bool {
	expanded := make(map[string]bool)
	for _, slug := range h.Expand(trackTags) {
		expanded[slug] = true
	}
	for _, slug := range candidateTags {
		if expanded[slug] {
			return true
		}
	}
	return false
}
