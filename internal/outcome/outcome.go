// Package outcome implements the C8 aggregation: rolling per-request
// RequestOutcomes up into a run summary, per group and overall, plus the
// exit-code policy.
package outcome

import "github.com/tylerbutler/wopi-validator-core/internal/model"

// GroupSummary counts case statuses within one test group.
type GroupSummary struct {
	Group    string
	Pass     int
	Fail     int
	Skipped  int
	CaseResults []model.CaseResult
}

// RunSummary is the complete aggregation for one validator invocation.
type RunSummary struct {
	Groups []GroupSummary
	Pass   int
	Fail   int
	Skipped int
}

// Aggregate groups results by TestCase.Group, preserving first-seen group
// order, and totals pass/fail/skipped overall.
func Aggregate(results []model.CaseResult) RunSummary {
	var summary RunSummary

	index := make(map[string]int)

	for _, r := range results {
		idx, ok := index[r.Group]
		if !ok {
			idx = len(summary.Groups)
			index[r.Group] = idx
			summary.Groups = append(summary.Groups, GroupSummary{Group: r.Group})
		}

		g := &summary.Groups[idx]
		g.CaseResults = append(g.CaseResults, r)

		switch r.Status {
		case model.StatusPass:
			g.Pass++
			summary.Pass++
		case model.StatusFail:
			g.Fail++
			summary.Fail++
		case model.StatusSkipped:
			g.Skipped++
			summary.Skipped++
		}
	}

	return summary
}

// ExitNonZero applies spec.md §4.8's exit-code rule: non-zero only on Fail
// when ignoreSkipped is true, otherwise non-zero on Fail or Skipped too.
func (s RunSummary) ExitNonZero(ignoreSkipped bool) bool {
	if s.Fail > 0 {
		return true
	}

	if !ignoreSkipped && s.Skipped > 0 {
		return true
	}

	return false
}
