package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lamim/talentradar/internal/config"
	"github.com/lamim/talentradar/internal/planner"
	"github.com/lamim/talentradar/pkg/models"
)

// queryFlags override the [query] section of the configuration
type queryFlags struct {
	keywords    []string
	venues      []string
	years       []int
	degrees     []string
	priority    []string
	constraints []string
	field       string
	topN        int
	student     bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&q.keywords, "keywords", "k", nil, "Research keywords (comma separated)")
	f.StringSliceVar(&q.venues, "venues", nil, "Venues to search, e.g. NeurIPS,ICML (default: built-in venue table)")
	f.IntSliceVar(&q.years, "years", nil, "Publication years (default: planner.default_years)")
	f.StringSliceVar(&q.degrees, "degree", nil, "Required degree levels, e.g. PhD,Master")
	f.StringSliceVar(&q.priority, "priority", nil, "Author positions to prioritize, e.g. first")
	f.StringSliceVar(&q.constraints, "constraint", nil, "Extra free-text constraints passed to the evaluator")
	f.StringVar(&q.field, "field", "", "Research field")
	f.IntVarP(&q.topN, "top-n", "n", 0, "Number of recommended candidates")
	f.BoolVar(&q.student, "student", false, "Only accept current students")
}

// apply returns base with every changed flag applied, then validates it
func (q *queryFlags) apply(cmd *cobra.Command, base models.QuerySpec) (models.QuerySpec, error) {
	spec := base
	changed := cmd.Flags().Changed

	if changed("keywords") {
		spec.Keywords = trimAll(q.keywords)
	}
	if changed("venues") {
		spec.Venues = trimAll(q.venues)
	}
	if changed("years") {
		spec.Years = slices.Clone(q.years)
	}
	if changed("degree") {
		spec.DegreeLevels = trimAll(q.degrees)
	}
	if changed("priority") {
		spec.AuthorPriority = trimAll(q.priority)
	}
	if changed("constraint") {
		spec.ExtraConstraints = trimAll(q.constraints)
	}
	if changed("field") {
		spec.ResearchField = strings.TrimSpace(q.field)
	}
	if changed("top-n") {
		spec.TopN = q.topN
	}
	if changed("student") {
		spec.MustBeCurrentStudent = q.student
	}

	if len(spec.Keywords) == 0 && spec.ResearchField == "" {
		return spec, fmt.Errorf("at least one keyword or a research field is required")
	}
	if err := config.ValidateQueryInputs(spec.Keywords, spec.Venues, spec.ResearchField); err != nil {
		return spec, err
	}
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// mergeVenues overlays configured aliases on the built-in venue table.
// A configured venue replaces a built-in one with the same name.
func mergeVenues(base []planner.Venue, overrides map[string][]string) []planner.Venue {
	out := make([]planner.Venue, len(base))
	copy(out, base)

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		v := planner.Venue{Name: name, Aliases: slices.Clone(overrides[name])}
		idx := slices.IndexFunc(out, func(e planner.Venue) bool {
			return strings.EqualFold(e.Name, name)
		})
		if idx >= 0 {
			out[idx] = v
		} else {
			out = append(out, v)
		}
	}
	return out
}
