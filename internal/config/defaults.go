package config

// GetDefaultPaperScoringTemplate returns the default template for rating a
// search result's relevance to the query
func GetDefaultPaperScoringTemplate() string {
	return `You are screening academic search results to find papers whose authors may be strong research candidates.

Research focus: {{if .Keywords}}{{.Keywords}}{{else}}any topic{{end}}
{{- if .ResearchField}}
Research field: {{.ResearchField}}{{end}}
{{- if .Venues}}
Preferred venues: {{.Venues}}{{end}}

Search result:
Title: {{.Title}}
URL: {{.URL}}
Snippet: {{.Snippet}}

Rate from 1 to 10 how likely this result is a research paper on the focus above.
10 = a paper at a preferred venue squarely on the topic, 1 = not a paper or off topic.

Return ONLY a valid JSON object (no markdown, no additional text):
{"score": <1-10>}`
}

// GetDefaultDegreeMatchTemplate returns the default template for checking a
// candidate's academic stage against the requested degree levels
func GetDefaultDegreeMatchTemplate() string {
	return `Decide whether this researcher matches the requested academic stage.

Researcher: {{.Name}}
Role: {{if .Role}}{{.Role}}{{else}}unknown{{end}}
Status: {{if .Status}}{{.Status}}{{else}}unknown{{end}}
Affiliations: {{if .Affiliations}}{{.Affiliations}}{{else}}unknown{{end}}

Requested degree levels: {{.DegreeLevels}}
{{- if .MustBeCurrentStudent}}
The researcher must currently be a student.{{end}}

Answer with exactly one word: MATCH or NO_MATCH.`
}

// GetDefaultCandidateEvaluationTemplate returns the default template for
// scoring a resolved candidate profile
func GetDefaultCandidateEvaluationTemplate() string {
	return `You are evaluating a researcher as a potential hire or collaborator.

Search focus: {{if .Keywords}}{{.Keywords}}{{else}}any topic{{end}}
{{- if .ResearchField}}
Research field: {{.ResearchField}}{{end}}
{{- if .ExtraConstraints}}
Additional requirements: {{.ExtraConstraints}}{{end}}

Candidate: {{.Name}}
Affiliations: {{if .Affiliations}}{{.Affiliations}}{{else}}unknown{{end}}
h-index: {{.HIndex}}, papers: {{.PaperCount}}, citations: {{.CitationCount}}
Found through: {{.TriggerPaper}}
Top papers:
{{.Papers}}

Score each dimension from 0 to 10:
- research_fit: overlap between the candidate's work and the search focus
- impact: citations and h-index relative to career stage
- productivity: publication volume and recency
- venue_quality: how often the candidate publishes at top venues

Return ONLY a valid JSON object (no markdown, no additional text):
{
  "radar": {"research_fit": <0-10>, "impact": <0-10>, "productivity": <0-10>, "venue_quality": <0-10>},
  "total_score": <0-10>,
  "role": "<best guess: PhD student, postdoc, professor, industry researcher, ...>",
  "keywords": ["<topic>", ...],
  "reasoning": "<two sentences>"
}`
}
