package credentials

import (
	"sort"
	"strconv"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
)

// Regions is the region selection of one draft. It only ever holds regions from
// the descriptor list and keeps them in catalog order, so toggling a region twice
// and "select all" versus toggling each region on produce identical selections.
type Regions struct {
	desc catalog.Descriptor
	set  map[string]struct{}
}

func newRegions(desc catalog.Descriptor) Regions {
	return Regions{desc: desc, set: map[string]struct{}{}}
}

// List returns the selected regions in catalog order.
func (r Regions) List() []string {
	out := make([]string, 0, len(r.set))
	for reg := range r.set {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return r.desc.RegionIndex(out[i]) < r.desc.RegionIndex(out[j]) })
	return out
}

func (r Regions) Has(region string) bool {
	_, ok := r.set[region]
	return ok
}

func (r Regions) Len() int { return len(r.set) }

func (r Regions) check(region string) error {
	if r.desc.RegionMode == catalog.RegionsNone {
		return apperr.New(apperr.CodeRegionsUnsupported, "Regions not supported", r.desc.Name+" does not take a region selection")
	}
	if !r.desc.HasRegion(region) {
		return apperr.New(apperr.CodeUnknownRegion, "Unknown region", region+" is not offered for "+r.desc.Name)
	}
	return nil
}

// Toggle adds region if absent and removes it if present. In single mode a
// second region is refused rather than swapped in; Choose replaces.
func (r *Regions) Toggle(region string) error {
	if err := r.check(region); err != nil {
		return err
	}
	if r.Has(region) {
		delete(r.set, region)
		return nil
	}
	if r.desc.RegionMode == catalog.RegionsSingle && len(r.set) > 0 {
		return apperr.New(apperr.CodeRegionsUnsupported, "Single region", r.desc.Name+" takes a single region")
	}
	r.set[region] = struct{}{}
	return nil
}

// Choose selects exactly region.
func (r *Regions) Choose(region string) error {
	if err := r.check(region); err != nil {
		return err
	}
	r.set = map[string]struct{}{region: {}}
	return nil
}

// SelectAll selects every default region. Single-region providers reject it.
func (r *Regions) SelectAll() error {
	if r.desc.RegionMode != catalog.RegionsMulti {
		return apperr.New(apperr.CodeRegionsUnsupported, "Regions not supported", r.desc.Name+" takes a single region")
	}
	for _, reg := range r.desc.Regions {
		r.set[reg] = struct{}{}
	}
	return nil
}

func (r *Regions) Clear() {
	r.set = map[string]struct{}{}
}

// Summary is the selector label shown for the current selection.
func (r Regions) Summary() string {
	switch n := r.Len(); {
	case n == 0:
		return "Select regions"
	case n == len(r.desc.Regions) && n > 1:
		return "All regions selected"
	case n == 1:
		return "1 region selected"
	default:
		return strconv.Itoa(n) + " regions selected"
	}
}
