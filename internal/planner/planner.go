// Package planner expands a query spec into an ordered list of search terms.
package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lamim/talentradar/pkg/models"
)

// DefaultMaxTerms caps the number of planned terms
const DefaultMaxTerms = 120

// Venue maps a venue name to the aliases used in search queries
type Venue struct {
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
}

// DefaultVenues is the venue table used when a spec names no venues
var DefaultVenues = []Venue{
	{Name: "NeurIPS", Aliases: []string{"NeurIPS"}},
	{Name: "AAAI", Aliases: []string{"AAAI"}},
	{Name: "IJCAI", Aliases: []string{"IJCAI"}},
	{Name: "ICML", Aliases: []string{"ICML"}},
	{Name: "ICLR", Aliases: []string{"ICLR"}},
	{Name: "KDD", Aliases: []string{"KDD"}},
	{Name: "ACL", Aliases: []string{"ACL"}},
	{Name: "EMNLP", Aliases: []string{"EMNLP"}},
	{Name: "NAACL", Aliases: []string{"NAACL"}},
	{Name: "CVPR", Aliases: []string{"CVPR"}},
	{Name: "ICCV", Aliases: []string{"ICCV"}},
	{Name: "ECCV", Aliases: []string{"ECCV"}},
	{Name: "COLING", Aliases: []string{"COLING"}},
	{Name: "SIGGRAPH", Aliases: []string{"SIGGRAPH"}},
	{Name: "ACM-MM", Aliases: []string{"ACM MM"}},
	{Name: "SIGMOD", Aliases: []string{"SIGMOD"}},
	{Name: "VLDB", Aliases: []string{"VLDB"}},
	{Name: "SIGIR", Aliases: []string{"SIGIR"}},
	{Name: "SIGCOMM", Aliases: []string{"SIGCOMM"}},
	{Name: "NSDI", Aliases: []string{"NSDI"}},
	{Name: "CHI", Aliases: []string{"CHI"}},
}

// Planner builds search terms of the form "<keywords> <alias> <year>"
type Planner struct {
	Venues       []Venue
	DefaultYears []int // Used when the spec has no years; empty means around the current year
	MaxTerms     int
	Now          func() time.Time
}

// New creates a planner with the default venue table
func New() *Planner {
	return &Planner{Venues: DefaultVenues, MaxTerms: DefaultMaxTerms, Now: time.Now}
}

// Plan returns the terms for spec. Aliases are visited round-robin so early
// batches cover many venues; within an alias the newest year comes first.
func (p *Planner) Plan(spec models.QuerySpec) []string {
	limit := p.MaxTerms
	if limit <= 0 {
		limit = DefaultMaxTerms
	}

	aliases := p.aliases(spec.Venues)
	years := p.years(spec.Years)
	keywords := JoinKeywords(spec.Keywords)

	queues := make([][]string, len(aliases))
	for i, alias := range aliases {
		for _, year := range years {
			if keywords != "" {
				queues[i] = append(queues[i], fmt.Sprintf("%s %s %d", keywords, alias, year))
			} else {
				queues[i] = append(queues[i], fmt.Sprintf("%s %d", alias, year))
			}
		}
	}

	out := make([]string, 0, limit)
	next := make([]int, len(queues))
	for len(out) < limit {
		progressed := false
		for i, queue := range queues {
			if next[i] >= len(queue) {
				continue
			}
			term := queue[next[i]]
			next[i]++
			if len(out) > 0 && out[len(out)-1] == term {
				continue
			}
			out = append(out, term)
			progressed = true
			if len(out) >= limit {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

func (p *Planner) aliases(venues []string) []string {
	table := p.Venues
	if table == nil {
		table = DefaultVenues
	}

	if len(venues) == 0 {
		venues = make([]string, len(table))
		for i, v := range table {
			venues[i] = v.Name
		}
	}

	var out []string
	for _, name := range venues {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if v, ok := lookup(table, name); ok {
			for _, a := range v.Aliases {
				if a = strings.TrimSpace(a); a != "" {
					out = append(out, a)
				}
			}
			continue
		}
		out = append(out, name)
	}
	return out
}

func lookup(table []Venue, name string) (Venue, bool) {
	for _, v := range table {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Venue{}, false
}

func (p *Planner) years(years []int) []int {
	if len(years) == 0 {
		years = p.DefaultYears
	}
	if len(years) == 0 {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		y := now().Year()
		years = []int{y, y - 1, y + 1}
	}
	out := append([]int(nil), years...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// JoinKeywords normalizes keywords (hyphens and underscores become spaces,
// surrounding quotes are dropped) and joins them with ", ".
func JoinKeywords(keywords []string) string {
	var parts []string
	for _, kw := range keywords {
		kw = strings.Trim(kw, `"`)
		kw = strings.NewReplacer("-", " ", "_", " ").Replace(kw)
		kw = strings.Join(strings.Fields(kw), " ")
		if kw != "" {
			parts = append(parts, kw)
		}
	}
	return strings.Join(parts, ", ")
}
