package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavecrit/wavecrit/internal/models"
)

func testHierarchy() *Hierarchy {
	return NewHierarchy([]*models.CategoryTag{
		{Slug: "electronic", Name: "Electronic"},
		{Slug: "house", Name: "House", ParentSlug: "electronic"},
		{Slug: "techno", Name: "Techno", ParentSlug: "electronic"},
		{Slug: "hip-hop", Name: "Hip-Hop"},
		{Slug: "boom-bap", Name: "Boom Bap", ParentSlug: "hip-hop"},
		{Slug: "ambient", Name: "Ambient"},
	})
}

func TestExpand_ParentIncludesChildren(t *testing.T) {
	h := testHierarchy()

	got := h.Expand([]string{"electronic"})
	assert.Equal(t, []string{"electronic", "house", "techno"}, got)
}

func TestExpand_ChildIncludesParentFamily(t *testing.T) {
	h := testHierarchy()

	got := h.Expand([]string{"house"})
	assert.Equal(t, []string{"electronic", "house", "techno"}, got)
}

func TestExpand_LeafWithoutFamily(t *testing.T) {
	h := testHierarchy()

	// A tag with neither parent nor children must not broaden.
	got := h.Expand([]string{"ambient"})
	assert.Equal(t, []string{"ambient"}, got)
}

func TestExpand_Idempotent(t *testing.T) {
	h := testHierarchy()

	inputs := [][]string{
		{"electronic"},
		{"house"},
		{"ambient"},
		{"house", "boom-bap"},
		{"electronic", "hip-hop", "ambient"},
		{},
	}
	for _, in := range inputs {
		once := h.Expand(in)
		twice := h.Expand(once)
		assert.Equal(t, once, twice, "expand(expand(%v)) != expand(%v)", in, in)
	}
}

func TestExpand_UnknownTagMapsToItself(t *testing.T) {
	h := testHierarchy()

	got := h.Expand([]string{"polka"})
	assert.Equal(t, []string{"polka"}, got)
}

func TestOverlaps(t *testing.T) {
	h := testHierarchy()

	// Reviewer registered for the broad genre matches a sub-genre track.
	assert.True(t, h.Overlaps([]string{"house"}, []string{"electronic"}))
	// And the other way around.
	assert.True(t, h.Overlaps([]string{"electronic"}, []string{"techno"}))
	// Disjoint families never match.
	assert.False(t, h.Overlaps([]string{"hip-hop"}, []string{"ambient"}))
	assert.False(t, h.Overlaps(nil, []string{"ambient"}))
}
