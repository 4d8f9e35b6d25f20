package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lamim/talentradar/internal/api"
	"github.com/lamim/talentradar/pkg/models"
)

type degree int

const (
	degreeUnknown degree = iota
	degreePhD
	degreeMaster
	degreeBachelor
)

var (
	phdStudentRoles    = []string{"phd student", "doctoral student", "ph.d student", "ph.d. student", "phd candidate", "ph.d. candidate", "doctoral candidate"}
	masterStudentRoles = []string{"master student", "master's student", "masters student", "msc student", "ms student", "m.eng student", "m eng student"}
	undergradRoles     = []string{"undergraduate student", "bachelor student", "bsc student", "bs student", "undergrad"}
	gradStudentRoles   = []string{"graduate student", "grad student"}
	seniorRoles        = []string{"assistant professor", "associate professor", "professor", "postdoc", "post-doctoral", "post doctoral", "postdoctoral"}
	studentMarkers     = []string{"student", "phd candidate", "doctoral candidate", "undergrad"}
)

// DegreeMatcher accepts candidates whose academic stage fits the requested
// degree levels
type DegreeMatcher struct {
	model    api.LanguageModel
	template string
	logger   *slog.Logger
}

// NewDegreeMatcher creates a matcher. model may be nil.
func NewDegreeMatcher(model api.LanguageModel, template string, logger *slog.Logger) *DegreeMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DegreeMatcher{
		model:    model,
		template: template,
		logger:   logger.With("component", "degree_matcher"),
	}
}

// Accept reports whether the profile's role or status satisfies the spec.
// A spec without degree levels or a student requirement accepts everyone.
func (d *DegreeMatcher) Accept(ctx context.Context, profile models.CandidateProfile, spec models.QuerySpec) bool {
	if len(spec.DegreeLevels) == 0 && !spec.MustBeCurrentStudent {
		return true
	}

	match, err := d.askModel(ctx, profile, spec)
	if err != nil {
		if !errors.Is(err, ErrNoModel) {
			d.logger.Debug("Model degree check failed, using rules", "name", profile.Name, "error", err)
		}
		match = ruleMatch(profile, spec)
	}

	if !match {
		d.logger.Debug("Candidate filtered by degree requirement",
			"name", profile.Name,
			"role", profile.Role,
			"status", profile.Status,
			"required", spec.DegreeLevels)
	}
	return match
}

func (d *DegreeMatcher) askModel(ctx context.Context, profile models.CandidateProfile, spec models.QuerySpec) (bool, error) {
	answer, err := ask(ctx, d.model, d.template, map[string]any{
		"Name":                 profile.Name,
		"Role":                 profile.Role,
		"Status":               profile.Status,
		"Affiliations":         strings.Join(profile.Affiliations, "; "),
		"DegreeLevels":         strings.Join(spec.DegreeLevels, ", "),
		"MustBeCurrentStudent": spec.MustBeCurrentStudent,
	})
	if err != nil {
		return false, err
	}

	verdict := strings.ToUpper(answer)
	switch {
	case strings.Contains(verdict, "NO_MATCH"), strings.Contains(verdict, "NO MATCH"):
		return false, nil
	case strings.Contains(verdict, "MATCH"):
		return true, nil
	default:
		return false, fmt.Errorf("unrecognized verdict %q", answer)
	}
}

func ruleMatch(profile models.CandidateProfile, spec models.QuerySpec) bool {
	if spec.MustBeCurrentStudent && !LooksLikeStudent(profile.Role) && !LooksLikeStudent(profile.Status) {
		return false
	}
	return RoleMatchesDegree(profile.Role, spec.DegreeLevels) ||
		RoleMatchesDegree(profile.Status, spec.DegreeLevels)
}

// RoleMatchesDegree checks a free-text role against the requested degree
// levels. Matching is strict: a role that names no student stage never
// matches, and senior roles are rejected as overqualified. An empty level
// list matches anything.
func RoleMatchesDegree(role string, levels []string) bool {
	if len(levels) == 0 {
		return true
	}
	t := strings.ToLower(role)

	senior := containsAny(t, seniorRoles)
	phd := containsAny(t, phdStudentRoles)
	// "undergraduate student" contains "graduate student"
	undergrad := containsAny(t, undergradRoles)
	grad := containsAny(t, gradStudentRoles) && !undergrad

	for _, l := range levels {
		switch parseDegree(l) {
		case degreePhD:
			if !senior && (phd || grad) {
				return true
			}
		case degreeMaster:
			if !senior && !phd && (containsAny(t, masterStudentRoles) || grad) {
				return true
			}
		case degreeBachelor:
			if !senior && undergrad {
				return true
			}
		}
	}
	return false
}

// LooksLikeStudent reports whether text describes a current student
func LooksLikeStudent(text string) bool {
	return containsAny(strings.ToLower(text), studentMarkers)
}

func parseDegree(level string) degree {
	l := strings.ToLower(strings.TrimSpace(level))
	l = strings.NewReplacer(".", "", "'s", "", " ", "").Replace(l)
	switch {
	case strings.HasPrefix(l, "phd"), strings.HasPrefix(l, "doctor"):
		return degreePhD
	case strings.HasPrefix(l, "master"), l == "msc", l == "ms", l == "meng", l == "mphil":
		return degreeMaster
	case strings.HasPrefix(l, "bachelor"), strings.HasPrefix(l, "undergrad"), l == "bsc", l == "bs", l == "ba":
		return degreeBachelor
	default:
		return degreeUnknown
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
