// Package judge provides the default scoring collaborators: paper selection,
// degree matching and candidate evaluation. Each one asks a language model
// first and falls back to a rule-based answer when no model is configured or
// the model call fails.
package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/lamim/talentradar/internal/api"
	"github.com/lamim/talentradar/internal/util"
)

// ErrNoModel is returned by ask when the collaborator runs without a model
var ErrNoModel = errors.New("no language model configured")

// ask renders the prompt template and sends it to the model
func ask(ctx context.Context, model api.LanguageModel, tmpl string, data map[string]any) (string, error) {
	if model == nil {
		return "", ErrNoModel
	}
	prompt, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	answer, err := model.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// keywordOverlap returns the fraction of keywords that occur in text,
// case-insensitively. Multi-word keywords count when all their words occur.
func keywordOverlap(text string, keywords []string) float64 {
	var total, hits int
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		words := strings.Fields(strings.ToLower(kw))
		if len(words) == 0 {
			continue
		}
		total++
		found := true
		for _, w := range words {
			if !strings.Contains(lower, w) {
				found = false
				break
			}
		}
		if found {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// matchedKeywords returns the keywords that occur in text, in input order
func matchedKeywords(text string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" && keywordOverlap(text, []string{kw}) == 1 {
			out = append(out, kw)
		}
	}
	return out
}

// domainOf returns the lower-cased host of rawURL without a leading "www."
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// hostMatches reports whether host equals domain or is one of its subdomains
func hostMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
