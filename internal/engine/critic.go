package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storyforge/internal/generation"
	"storyforge/internal/logging"
)

// Critic evaluates artifacts against the quality rubric. A generation
// outage degrades quality gating instead of blocking the pipeline: the
// critic then returns a default-pass result rather than an error.
type Critic struct {
	gen      generation.Generator
	minScore float64
	log      *zap.Logger
}

// fallbackScore is returned when the generation service is unavailable.
// It sits below the default threshold only nominally; satisfactory is
// forced true so an outage never blocks the loop.
const fallbackScore = 6.0

// NewCritic creates a critic. minScore <= 0 falls back to 7.0.
func NewCritic(gen generation.Generator, minScore float64) *Critic {
	if minScore <= 0 {
		minScore = 7.0
	}
	return &Critic{gen: gen, minScore: minScore, log: logging.Named("critic")}
}

// MinimumScore returns the configured pass threshold.
func (c *Critic) MinimumScore() float64 { return c.minScore }

// Review scores an artifact and parses the free-form critique into a
// structured result. Satisfactory is always computed from the score,
// never parsed from the response.
func (c *Critic) Review(ctx context.Context, artifact, artifactKind string, aux map[string]string) CritiqueResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate this %s on consistency, quality, and flow.\n", artifactKind)
	b.WriteString("Give a score from 0 to 10 on a line like \"Score: N\", list issues as bullet points, list recommendations, and end with a summary.\n\n")
	for k, v := range aux {
		if v != "" {
			fmt.Fprintf(&b, "%s:\n%s\n\n", k, v)
		}
	}
	fmt.Fprintf(&b, "Text to evaluate:\n%s", artifact)

	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "You are an exacting literary critic. Be specific and concrete."},
			{Role: generation.RoleUser, Content: b.String()},
		},
		Temperature: 0.3,
	})
	if err != nil {
		c.log.Warn("review degraded: generation unavailable", zap.Error(err))
		return CritiqueResult{
			Score:        fallbackScore,
			Satisfactory: true,
			Summary:      fmt.Sprintf("review unavailable (%v); passing by default", err),
		}
	}

	result := parseCritique(text)
	result.Satisfactory = result.Score >= c.minScore
	return result
}

// QuickCheck is a cheaper single-pass consistency probe against a short
// list of reference facts, for proactive background checks. On generation
// failure it reports consistent, mirroring Review's availability bias.
func (c *Critic) QuickCheck(ctx context.Context, content string, referenceFacts []string) (bool, []string) {
	text, err := c.gen.Generate(ctx, generation.Request{
		Messages: []generation.Message{
			{Role: generation.RoleSystem, Content: "Check the text against the facts. If everything is consistent reply with the single word OK. Otherwise list each contradiction as a bullet point."},
			{Role: generation.RoleUser, Content: fmt.Sprintf("Facts:\n- %s\n\nText:\n%s", strings.Join(referenceFacts, "\n- "), content)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		c.log.Warn("quick check degraded: generation unavailable", zap.Error(err))
		return true, nil
	}

	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "ok") {
		return true, nil
	}
	var issues []string
	for _, line := range strings.Split(trimmed, "\n") {
		if item, ok := bulletText(line); ok {
			issues = append(issues, item)
		}
	}
	if len(issues) == 0 && trimmed != "" {
		issues = append(issues, trimmed)
	}
	return len(issues) == 0, issues
}

// --- critique parsing -------------------------------------------------
//
// Free-form critique text is parsed best-effort in one isolated stage:
// score near a "score" marker, bullet lines as findings, a trailing
// summary. Every extractor has a documented fallback so a malformed
// response still yields a usable result.

var (
	scoreMarkerRe = regexp.MustCompile(`(?i)score[^0-9]{0,12}(\d+(?:\.\d+)?)`)
	numberRe      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	bulletRe      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.*\S)`)
	summaryRe     = regexp.MustCompile(`(?is)summary\s*[:\-]?\s*(.+)$`)
)

// parseCritique converts critique text into a structured result.
// Satisfactory is left for the caller to compute.
func parseCritique(text string) CritiqueResult {
	result := CritiqueResult{
		Score:   extractScore(text),
		Summary: extractSummary(text),
	}

	inRecommendations := false
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "recommendation") {
			inRecommendations = true
			continue
		}
		if strings.Contains(lower, "summary") {
			inRecommendations = false
			continue
		}
		item, ok := bulletText(line)
		if !ok {
			continue
		}
		if inRecommendations {
			result.Recommendations = append(result.Recommendations, item)
			continue
		}
		result.Items = append(result.Items, CritiqueItem{
			Category: classifyCategory(item),
			Severity: classifySeverity(item),
			Issue:    item,
		})
	}
	return result
}

// extractScore finds the first number after a "score" marker, clamped to
// [0,10]. Without a marker it tries the first number anywhere; without
// any number it returns 5.0 (middling, below the default threshold).
func extractScore(text string) float64 {
	var raw string
	if m := scoreMarkerRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := numberRe.FindString(text); m != "" {
		raw = m
	} else {
		return 5.0
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 5.0
	}
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// extractSummary takes the text after the last "summary" marker, falling
// back to the trailing 300 characters.
func extractSummary(text string) string {
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 300 {
		trimmed = trimmed[len(trimmed)-300:]
	}
	return trimmed
}

// bulletText strips a bullet marker, reporting whether line was a bullet.
func bulletText(line string) (string, bool) {
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

func classifyCategory(item string) CritiqueCategory {
	l := strings.ToLower(item)
	switch {
	case strings.Contains(l, "consisten"), strings.Contains(l, "contradict"), strings.Contains(l, "continuity"):
		return CategoryConsistency
	case strings.Contains(l, "pacing"), strings.Contains(l, "pace"), strings.Contains(l, "rushed"), strings.Contains(l, "drags"):
		return CategoryPacing
	case strings.Contains(l, "dialogue"), strings.Contains(l, "dialog"):
		return CategoryDialogue
	case strings.Contains(l, "character"), strings.Contains(l, "motivation"):
		return CategoryCharacter
	case strings.Contains(l, "plot"), strings.Contains(l, "story arc"):
		return CategoryPlot
	case strings.Contains(l, "description"), strings.Contains(l, "imagery"), strings.Contains(l, "setting"):
		return CategoryDescription
	case strings.Contains(l, "flow"), strings.Contains(l, "transition"):
		return CategoryFlow
	default:
		return CategoryQuality
	}
}

func classifySeverity(item string) CritiqueSeverity {
	l := strings.ToLower(item)
	switch {
	case strings.Contains(l, "critical"), strings.Contains(l, "severe"), strings.Contains(l, "breaks"):
		return SeverityCritical
	case strings.Contains(l, "major"), strings.Contains(l, "significant"), strings.Contains(l, "serious"):
		return SeverityMajor
	case strings.Contains(l, "minor"), strings.Contains(l, "small"), strings.Contains(l, "slight"), strings.Contains(l, "nit"):
		return SeverityMinor
	default:
		return SeverityModerate
	}
}
