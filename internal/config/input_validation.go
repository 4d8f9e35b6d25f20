package config

import (
	"fmt"
	"net/url"
	"unicode"
)

const (
	// MaxKeywordLength is the maximum allowed length for a single keyword
	MaxKeywordLength = 200

	// MaxKeywords is the maximum number of keywords in a query
	MaxKeywords = 50

	// MaxVenueLength is the maximum allowed length for a venue name or alias
	MaxVenueLength = 100

	// MaxFieldLength is the maximum allowed length for free-text query fields
	MaxFieldLength = 500

	// MaxModelNameLength is the maximum allowed length for model names
	MaxModelNameLength = 100

	// MaxTemplateSize is the maximum allowed size for template content
	MaxTemplateSize = 50 * 1024 // 50KB
)

// ValidateInputs performs additional security validation on user-controllable fields.
// Query fields end up in search terms and prompts, so they are bounded and
// must not carry control characters.
func (c *Config) ValidateInputs() error {
	if err := ValidateQueryInputs(c.Query.Keywords, c.Query.Venues, c.Query.ResearchField); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	for venue, aliases := range c.Planner.VenueAliases {
		if err := validateText("venue", venue, MaxVenueLength); err != nil {
			return fmt.Errorf("invalid planner.venue_aliases: %w", err)
		}
		for _, alias := range aliases {
			if err := validateText("alias", alias, MaxVenueLength); err != nil {
				return fmt.Errorf("invalid planner.venue_aliases.%s: %w", venue, err)
			}
		}
	}

	if err := validateBaseURL(c.Search.BaseURL, "search"); err != nil {
		return err
	}
	if err := validateBaseURL(c.Scholar.BaseURL, "scholar"); err != nil {
		return err
	}

	// Validate model configurations
	for name, mc := range c.Models {
		if err := validateModelName(mc.ModelName, name); err != nil {
			return err
		}

		if err := validateBaseURL(mc.BaseURL, "models."+name); err != nil {
			return err
		}
	}

	// Validate template sizes
	if err := c.validateTemplateSizes(); err != nil {
		return err
	}

	return nil
}

// ValidateQueryInputs checks query text supplied from config or CLI flags
func ValidateQueryInputs(keywords, venues []string, researchField string) error {
	if len(keywords) > MaxKeywords {
		return fmt.Errorf("too many keywords (max %d, got %d)", MaxKeywords, len(keywords))
	}
	for _, kw := range keywords {
		if err := validateText("keyword", kw, MaxKeywordLength); err != nil {
			return err
		}
	}
	for _, v := range venues {
		if err := validateText("venue", v, MaxVenueLength); err != nil {
			return err
		}
	}
	return validateText("research_field", researchField, MaxFieldLength)
}

// validateText checks a free-text value for length and control characters
func validateText(kind, value string, maxLen int) error {
	// Check length
	if len(value) > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d characters (got %d)",
			kind, maxLen, len(value))
	}

	// Check for control characters (except newlines and tabs)
	if containsControlChars(value) {
		return fmt.Errorf("%s contains invalid control characters", kind)
	}

	return nil
}

// validateModelName checks model name for security issues
func validateModelName(modelName, configKey string) error {
	if len(modelName) > MaxModelNameLength {
		return fmt.Errorf("model '%s' name exceeds maximum length of %d (got %d)",
			configKey, MaxModelNameLength, len(modelName))
	}

	// Check for control characters
	if containsControlChars(modelName) {
		return fmt.Errorf("model '%s' name contains invalid control characters", configKey)
	}

	return nil
}

// validateBaseURL checks that the base URL is properly formatted and safe
func validateBaseURL(baseURL, section string) error {
	// Parse URL
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%s has invalid base_url: %w", section, err)
	}

	// Check scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s base_url must use http or https scheme (got %s)",
			section, u.Scheme)
	}

	// Check host is present
	if u.Host == "" {
		return fmt.Errorf("%s base_url must have a host", section)
	}

	return nil
}

// validateTemplateSizes checks that templates are within reasonable size limits
func (c *Config) validateTemplateSizes() error {
	templates := []struct {
		name  string
		value string
	}{
		{"paper_scoring", c.PromptTemplates.PaperScoring},
		{"degree_match", c.PromptTemplates.DegreeMatch},
		{"candidate_evaluation", c.PromptTemplates.CandidateEvaluation},
		{"system_prompt", c.PromptTemplates.SystemPrompt},
	}

	for _, tmpl := range templates {
		if len(tmpl.value) > MaxTemplateSize {
			return fmt.Errorf("template '%s' exceeds maximum size of %d bytes (got %d)",
				tmpl.name, MaxTemplateSize, len(tmpl.value))
		}
	}

	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
