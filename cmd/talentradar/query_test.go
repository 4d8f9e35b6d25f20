package main

import (
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lamim/talentradar/internal/planner"
	"github.com/lamim/talentradar/pkg/models"
)

func newQueryCommand(t *testing.T, args ...string) (*cobra.Command, *queryFlags) {
	t.Helper()
	q := &queryFlags{}
	cmd := &cobra.Command{Use: "search"}
	q.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	return cmd, q
}

func TestQueryFlags_Apply(t *testing.T) {
	base := models.QuerySpec{TopN: 10, Keywords: []string{"from config"}, Venues: []string{"ICML"}}
	cmd, q := newQueryCommand(t,
		"--keywords", "graph neural networks, ,robustness",
		"--years", "2024,2023",
		"--degree", "PhD",
		"--top-n", "5",
		"--student")

	spec, err := q.apply(cmd, base)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if !reflect.DeepEqual(spec.Keywords, []string{"graph neural networks", "robustness"}) {
		t.Errorf("Expected trimmed keywords, got %v", spec.Keywords)
	}
	if !reflect.DeepEqual(spec.Venues, []string{"ICML"}) {
		t.Errorf("Expected venues from config to be kept, got %v", spec.Venues)
	}
	if !reflect.DeepEqual(spec.Years, []int{2024, 2023}) {
		t.Errorf("Expected years [2024 2023], got %v", spec.Years)
	}
	if spec.TopN != 5 {
		t.Errorf("Expected top_n 5, got %d", spec.TopN)
	}
	if !spec.MustBeCurrentStudent {
		t.Error("Expected must_be_current_student to be set")
	}
	if !reflect.DeepEqual(spec.DegreeLevels, []string{"PhD"}) {
		t.Errorf("Expected degree levels [PhD], got %v", spec.DegreeLevels)
	}
}

func TestQueryFlags_ApplyRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		base models.QuerySpec
		args []string
	}{
		{"no keywords or field", models.QuerySpec{TopN: 10}, nil},
		{"zero top-n", models.QuerySpec{TopN: 10}, []string{"--keywords", "llm", "--top-n", "0"}},
		{"year out of range", models.QuerySpec{TopN: 10}, []string{"--field", "NLP", "--years", "1200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, q := newQueryCommand(t, tt.args...)
			if _, err := q.apply(cmd, tt.base); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}

func TestMergeVenues(t *testing.T) {
	base := []planner.Venue{
		{Name: "ICML", Aliases: []string{"ICML"}},
		{Name: "NeurIPS", Aliases: []string{"NeurIPS", "NIPS"}},
	}
	merged := mergeVenues(base, map[string][]string{
		"neurips": {"NeurIPS"},
		"CoRL":    {"CoRL", "Conference on Robot Learning"},
	})

	if len(merged) != 3 {
		t.Fatalf("Expected 3 venues, got %d", len(merged))
	}
	if merged[1].Name != "neurips" || !reflect.DeepEqual(merged[1].Aliases, []string{"NeurIPS"}) {
		t.Errorf("Expected NeurIPS to be replaced in place, got %+v", merged[1])
	}
	if merged[2].Name != "CoRL" {
		t.Errorf("Expected CoRL to be appended, got %+v", merged[2])
	}
	if len(base[1].Aliases) != 2 {
		t.Error("Expected base table to be left untouched")
	}
}
