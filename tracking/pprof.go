package tracking

import (
	"io"
	"strings"

	"github.com/google/pprof/profile"
)

// BuildProfile converts a registry snapshot into a pprof profile with
// inuse_objects and inuse_bytes sample types. Each task becomes one sample
// whose location chain is the task's call path, leaf first as pprof
// expects.
func BuildProfile(r *Registry) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "inuse_objects", Unit: "count"},
			{Type: "inuse_bytes", Unit: "bytes"},
		},
	}

	functions := make(map[string]*profile.Function)
	locations := make(map[string]*profile.Location)

	for _, task := range r.Tasks() {
		segments := strings.Split(task.Path, ";")

		sample := &profile.Sample{
			Value: []int64{
				int64(task.AllocCount),
				int64(task.MemoryBytes),
			},
		}

		// Leaf first.
		for i := len(segments) - 1; i >= 0; i-- {
			sample.Location = append(
				sample.Location,
				locationFor(p, functions, locations, segments[i]),
			)
		}

		p.Sample = append(p.Sample, sample)
	}

	return p
}

func locationFor(
	p *profile.Profile,
	functions map[string]*profile.Function,
	locations map[string]*profile.Location,
	name string,
) *profile.Location {
	if loc, ok := locations[name]; ok {
		return loc
	}

	fn, ok := functions[name]
	if !ok {
		fn = &profile.Function{
			ID:         uint64(len(functions) + 1),
			Name:       name,
			SystemName: name,
		}
		functions[name] = fn
		p.Function = append(p.Function, fn)
	}

	loc := &profile.Location{
		ID:   uint64(len(locations) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	locations[name] = loc
	p.Location = append(p.Location, loc)

	return loc
}

// WriteProfile serializes the registry snapshot as a gzip-compressed pprof
// profile.
func WriteProfile(w io.Writer, r *Registry) error {
	return BuildProfile(r).Write(w)
}
