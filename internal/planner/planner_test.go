package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lamim/talentradar/pkg/models"
)

func TestPlan_RoundRobinNewestYearFirst(t *testing.T) {
	p := New()
	terms := p.Plan(models.QuerySpec{
		Venues:   []string{"ACL", "EMNLP"},
		Years:    []int{2024, 2025},
		Keywords: []string{"retrieval-augmented generation", "agents"},
	})

	assert.Equal(t, []string{
		"retrieval augmented generation, agents ACL 2025",
		"retrieval augmented generation, agents EMNLP 2025",
		"retrieval augmented generation, agents ACL 2024",
		"retrieval augmented generation, agents EMNLP 2024",
	}, terms)
}

func TestPlan_NoKeywords(t *testing.T) {
	p := New()
	terms := p.Plan(models.QuerySpec{Venues: []string{"ICLR"}, Years: []int{2025}})
	assert.Equal(t, []string{"ICLR 2025"}, terms)
}

func TestPlan_UnknownVenueUsedVerbatimAndAliasesExpanded(t *testing.T) {
	p := New()
	terms := p.Plan(models.QuerySpec{Venues: []string{"acm-mm", "MyWorkshop"}, Years: []int{2025}})
	assert.Equal(t, []string{"ACM MM 2025", "MyWorkshop 2025"}, terms)
}

func TestPlan_DefaultYearsAroundNow(t *testing.T) {
	p := New()
	p.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	terms := p.Plan(models.QuerySpec{Venues: []string{"CVPR"}})
	assert.Equal(t, []string{"CVPR 2026", "CVPR 2025", "CVPR 2024"}, terms)
}

func TestPlan_ConfiguredDefaultYears(t *testing.T) {
	p := New()
	p.DefaultYears = []int{2023}

	terms := p.Plan(models.QuerySpec{Venues: []string{"CVPR"}})
	assert.Equal(t, []string{"CVPR 2023"}, terms)
}

func TestPlan_DefaultVenuesAndCap(t *testing.T) {
	p := New()
	p.MaxTerms = 5

	terms := p.Plan(models.QuerySpec{Years: []int{2025}})
	assert.Equal(t, []string{"NeurIPS 2025", "AAAI 2025", "IJCAI 2025", "ICML 2025", "ICLR 2025"}, terms)
}

func TestPlan_SkipsConsecutiveDuplicates(t *testing.T) {
	p := &Planner{Venues: []Venue{{Name: "A", Aliases: []string{"X"}}, {Name: "B", Aliases: []string{"X"}}}}
	terms := p.Plan(models.QuerySpec{Venues: []string{"A", "B"}, Years: []int{2025}})
	assert.Equal(t, []string{"X 2025"}, terms)
}

func TestPlan_DoesNotMutateSpecYears(t *testing.T) {
	spec := models.QuerySpec{Venues: []string{"ICML"}, Years: []int{2023, 2025}}
	New().Plan(spec)
	assert.Equal(t, []int{2023, 2025}, spec.Years)
}

func TestJoinKeywords(t *testing.T) {
	assert.Equal(t, "text generation, diffusion model", JoinKeywords([]string{"text-generation", `"diffusion_model"`}))
	assert.Equal(t, "", JoinKeywords(nil))
	assert.Equal(t, "a b", JoinKeywords([]string{"  a   b ", ""}))
}
