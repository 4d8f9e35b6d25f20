package config

import (
	"strings"
	"testing"
)

func TestValidateQueryInputs_Valid(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		venues   []string
		field    string
	}{
		{"typical", []string{"retrieval augmented generation", "RAG"}, []string{"ACL", "EMNLP"}, "NLP"},
		{"empty", nil, nil, ""},
		{"newlines allowed in field", nil, nil, "Machine learning\nand systems"},
		{"unicode", []string{"图神经网络"}, []string{"CCF-A"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateQueryInputs(tt.keywords, tt.venues, tt.field); err != nil {
				t.Errorf("ValidateQueryInputs() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateQueryInputs_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		venues   []string
		field    string
		want     string // substring of expected error
	}{
		{
			name:     "keyword too long",
			keywords: []string{strings.Repeat("a", MaxKeywordLength+1)},
			want:     "keyword exceeds maximum length",
		},
		{
			name:     "too many keywords",
			keywords: make([]string, MaxKeywords+1),
			want:     "too many keywords",
		},
		{
			name:     "keyword control chars",
			keywords: []string{"rag\x00"},
			want:     "keyword contains invalid control characters",
		},
		{
			name:   "venue too long",
			venues: []string{strings.Repeat("v", MaxVenueLength+1)},
			want:   "venue exceeds maximum length",
		},
		{
			name:  "field bell char",
			field: "NLP\x07",
			want:  "research_field contains invalid control characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueryInputs(tt.keywords, tt.venues, tt.field)
			if err == nil {
				t.Errorf("ValidateQueryInputs() expected error, got nil")
			} else if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ValidateQueryInputs() error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidateModelName_Valid(t *testing.T) {
	tests := []string{
		"gpt-4o-mini",
		"llama-3.1-70b-instruct",
		"qwen2.5-72b-instruct",
		"mixtral-8x7b-v0.1",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			if err := validateModelName(tt, "test"); err != nil {
				t.Errorf("validateModelName(%q) returned unexpected error: %v", tt, err)
			}
		})
	}
}

func TestValidateModelName_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "too_long",
			input: strings.Repeat("a", MaxModelNameLength+1),
			want:  "exceeds maximum length",
		},
		{
			name:  "control_chars",
			input: "model\x00name",
			want:  "invalid control characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModelName(tt.input, "test")
			if err == nil {
				t.Errorf("validateModelName(%q) expected error, got nil", tt.input)
			} else if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validateModelName(%q) error = %v, want substring %q", tt.input, err, tt.want)
			}
		})
	}
}

func TestValidateBaseURL_Valid(t *testing.T) {
	tests := []string{
		"https://api.openai.com/v1",
		"http://localhost:8888",
		"https://api.semanticscholar.org/graph/v1",
		"http://192.168.1.100:11434",
	}

	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			if err := validateBaseURL(tt, "test"); err != nil {
				t.Errorf("validateBaseURL(%q) returned unexpected error: %v", tt, err)
			}
		})
	}
}

func TestValidateBaseURL_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "invalid_scheme",
			input: "ftp://example.com",
			want:  "must use http or https scheme",
		},
		{
			name:  "missing_scheme",
			input: "example.com",
			want:  "must use http or https scheme",
		},
		{
			name:  "no_host",
			input: "https://",
			want:  "must have a host",
		},
		{
			name:  "invalid_url",
			input: "ht!tp://invalid",
			want:  "invalid base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBaseURL(tt.input, "test")
			if err == nil {
				t.Errorf("validateBaseURL(%q) expected error, got nil", tt.input)
			} else if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validateBaseURL(%q) error = %v, want substring %q", tt.input, err, tt.want)
			}
		})
	}
}

func TestValidateInputs(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateInputs(); err != nil {
		t.Fatalf("ValidateInputs() on defaults returned error: %v", err)
	}

	cfg.Planner.VenueAliases = map[string][]string{"ACL": {"ACL\x01"}}
	if err := cfg.ValidateInputs(); err == nil || !strings.Contains(err.Error(), "venue_aliases.ACL") {
		t.Errorf("Expected alias error, got %v", err)
	}

	cfg = validConfig()
	cfg.Search.BaseURL = "localhost:8888"
	if err := cfg.ValidateInputs(); err == nil || !strings.Contains(err.Error(), "search base_url") {
		t.Errorf("Expected search URL error, got %v", err)
	}

	cfg = validConfig()
	cfg.Query.Keywords = []string{"bad\x00keyword"}
	if err := cfg.ValidateInputs(); err == nil || !strings.Contains(err.Error(), "invalid query") {
		t.Errorf("Expected query error, got %v", err)
	}
}

func TestValidateTemplateSizes(t *testing.T) {
	cfg := validConfig()
	if err := cfg.validateTemplateSizes(); err != nil {
		t.Errorf("validateTemplateSizes() with default templates returned error: %v", err)
	}

	cfg.PromptTemplates.CandidateEvaluation = strings.Repeat("x", MaxTemplateSize+1)
	err := cfg.validateTemplateSizes()
	if err == nil {
		t.Fatal("validateTemplateSizes() with oversized template expected error, got nil")
	}
	if !strings.Contains(err.Error(), "candidate_evaluation") {
		t.Errorf("Expected error to name candidate_evaluation, got %v", err)
	}
}

func TestContainsControlChars(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"normal text", false},
		{"tab\there", false},
		{"line\nbreak", false},
		{"carriage\rreturn", false},
		{"null\x00byte", true},
		{"escape\x1bseq", true},
	}

	for _, tt := range tests {
		if got := containsControlChars(tt.input); got != tt.want {
			t.Errorf("containsControlChars(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
