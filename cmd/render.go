package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/spigell/skillbridge-matcher/internal/matching"
	"github.com/spigell/skillbridge-matcher/internal/scoring"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scoreColor paints a [0, 1] score green, yellow or red.
func scoreColor(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	switch {
	case v >= 0.75:
		return boldGreen(s)
	case v >= 0.5:
		return yellow(s)
	default:
		return red(s)
	}
}

func renderRanking(w io.Writer, r matching.Ranking) {
	if !r.SimilarityAvailable {
		fmt.Fprintln(w, yellow("similarity unavailable, ranked by rule-based score only"))
	}
	if len(r.Matches) == 0 {
		fmt.Fprintln(w, faint("no matches"))
		return
	}
	for i, m := range r.Matches {
		title := ""
		switch {
		case m.Job != nil:
			title = m.Job.Title
			if m.Job.Company != "" {
				title = strings.TrimSpace(title + " @ " + m.Job.Company)
			}
		case m.Candidate != nil:
			title = m.Candidate.Title
		}
		rank := ""
		if m.RankScore != m.Score.OverallScore {
			rank = fmt.Sprintf("  rank %.2f", m.RankScore)
		}
		fmt.Fprintf(w, "%2d. %s %s  overall %s%s  similarity %.3f\n",
			i+1, boldCyan(m.CounterpartID), title, scoreColor(m.Score.OverallScore), rank, m.SimilarityScore)
		renderDetails(w, "    ", m.Score)
		if m.Explanation != nil {
			fmt.Fprintf(w, "    %s\n", faint(*m.Explanation))
		}
	}
	for _, s := range r.Steps {
		fmt.Fprintf(w, "%s\n", faint(fmt.Sprintf("step %s: initial=%d dropped=%d left=%d boosted=%d", s.Name, s.Initial, s.Dropped, s.Left, s.Boosted)))
	}
}

func renderDetails(w io.Writer, indent string, r scoring.Result) {
	fmt.Fprintf(w, "%sskills %s (%.0f%%) experience %s (%d/%d) location %s\n",
		indent,
		scoreColor(r.SkillScore), r.SkillMatchPercentage,
		scoreColor(r.ExperienceScore), r.CandidateExperience, r.RequiredExperience,
		scoreColor(r.LocationScore),
	)
	if len(r.MatchedRequiredSkills) > 0 {
		fmt.Fprintf(w, "%smatched: %s\n", indent, boldGreen(strings.Join(r.MatchedRequiredSkills, ", ")))
	}
	if len(r.MatchedPreferredSkills) > 0 {
		fmt.Fprintf(w, "%spreferred: %s\n", indent, strings.Join(r.MatchedPreferredSkills, ", "))
	}
	if len(r.MissingSkills) > 0 {
		fmt.Fprintf(w, "%smissing: %s\n", indent, red(strings.Join(r.MissingSkills, ", ")))
	}
}

func renderPair(w io.Writer, p matching.PairResult) {
	fmt.Fprintf(w, "%s vs %s  overall %s\n", boldCyan(p.CandidateID), boldCyan(p.JobID), scoreColor(p.Score.OverallScore))
	renderDetails(w, "  ", p.Score)
	if p.Explanation != nil {
		fmt.Fprintf(w, "  %s\n", faint(*p.Explanation))
	}
}

func renderInfo(w io.Writer, infos []vectorindex.Info) {
	for _, info := range infos {
		status := boldGreen(info.Status)
		if !strings.EqualFold(info.Status, "green") {
			status = yellow(info.Status)
		}
		fmt.Fprintf(w, "%s  status %s  points %d  vectors %d  dimension %d\n",
			boldCyan(info.Name), status, info.PointsCount, info.VectorsCount, info.Dimension)
	}
}
