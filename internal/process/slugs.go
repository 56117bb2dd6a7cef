package process

import "strconv"

// SlugRegistry hands out corpus-unique slugs for one processing run.
// It is not safe for concurrent use; the processor owns it.
type SlugRegistry struct {
	taken map[string]int // slug -> book id
}

// NewSlugRegistry creates an empty registry.
func NewSlugRegistry() *SlugRegistry {
	return &SlugRegistry{taken: make(map[string]int)}
}

// Assign claims a slug for book id. The first claimant keeps base; later
// claimants get base-<id>.
func (r *SlugRegistry) Assign(base string, id int) string {
	slug := base
	if _, ok := r.taken[slug]; ok {
		slug = base + "-" + strconv.Itoa(id)
		// A title may itself end in "-<id>"; keep counting until free.
		for n := 2; ; n++ {
			if _, ok := r.taken[slug]; !ok {
				break
			}
			slug = base + "-" + strconv.Itoa(id) + "-" + strconv.Itoa(n)
		}
	}
	r.taken[slug] = id
	return slug
}

// Len returns the number of assigned slugs.
func (r *SlugRegistry) Len() int {
	return len(r.taken)
}
