package catalog

import (
	"github.com/sharetube/camwall/pkg/validator"
)

type FilterOptions struct {
	Banned []string
	AdFree bool
}

// Rejected is a raw descriptor that did not survive validation.
type Rejected struct {
	Index  int
	ID     string
	Errors []validator.ValidationError
}

// Rotation is the ordered list of cams eligible for playback. Degraded is set
// when a filter had to be ignored to keep the list non-empty.
type Rotation struct {
	Cams     []Cam
	Degraded bool
}

func (r Rotation) Len() int {
	return len(r.Cams)
}

// IndexOf returns the position of id in the rotation or -1.
func (r Rotation) IndexOf(id string) int {
	for i, c := range r.Cams {
		if c.ID == id {
			return i
		}
	}

	return -1
}

// Valid normalizes raw and keeps the enabled, addressable descriptors in order.
// Duplicate ids keep the first occurrence.
func Valid(raw []Cam) ([]Cam, []Rejected) {
	valid := make([]Cam, 0, len(raw))
	var rejected []Rejected
	seen := make(map[string]struct{}, len(raw))
	for i, c := range raw {
		c = c.Normalize()
		if c.Disabled {
			continue
		}

		if errs := c.Validate(); errs != nil {
			rejected = append(rejected, Rejected{Index: i, ID: c.ID, Errors: errs})
			continue
		}

		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}

		valid = append(valid, c)
	}

	return valid, rejected
}

// Filter derives the rotation from raw. It is empty only when no descriptor in
// raw is valid.
func Filter(raw []Cam, opts FilterOptions) Rotation {
	valid, _ := Valid(raw)

	banned := make(map[string]struct{}, len(opts.Banned))
	for _, id := range opts.Banned {
		banned[id] = struct{}{}
	}

	cams := make([]Cam, 0, len(valid))
	for _, c := range valid {
		if _, ok := banned[c.ID]; !ok {
			cams = append(cams, c)
		}
	}

	degraded := false
	if opts.AdFree && len(cams) > 0 {
		adFree := make([]Cam, 0, len(cams))
		for _, c := range cams {
			if c.Kind.AdFree() {
				adFree = append(adFree, c)
			}
		}

		if len(adFree) > 0 {
			cams = adFree
		} else {
			degraded = true
		}
	}

	if len(cams) == 0 && len(valid) > 0 {
		return Rotation{Cams: valid, Degraded: true}
	}

	return Rotation{Cams: cams, Degraded: degraded}
}
