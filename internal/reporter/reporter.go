// Package reporter renders a RunSummary to the terminal, in the plain
// stderr/stdout style the teacher uses for CLI output (format.go, status.go)
// rather than a table/color library — no library in the example pack is
// actually exercised for colored terminal output (see DESIGN.md).
package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/outcome"
)

// Print writes a human-readable report of summary to w.
func Print(w io.Writer, summary outcome.RunSummary, verbose bool) {
	for _, g := range summary.Groups {
		fmt.Fprintf(w, "== %s ==\n", groupLabel(g.Group))

		for _, c := range g.CaseResults {
			fmt.Fprintf(w, "  [%s] %s\n", c.Status, c.CaseName)

			if c.Status == model.StatusPass && !verbose {
				continue
			}

			for _, ro := range c.RequestOutcomes {
				printRequestOutcome(w, ro, verbose)
			}

			if c.Status != model.StatusPass && c.FinalFailMessage != "" {
				fmt.Fprintf(w, "      %s\n", c.FinalFailMessage)
			}
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped\n", summary.Pass, summary.Fail, summary.Skipped)
}

func printRequestOutcome(w io.Writer, ro model.RequestOutcome, verbose bool) {
	if !ro.Failed() && !verbose {
		return
	}

	fmt.Fprintf(w, "    - %s (status %d, %s)\n", ro.RequestName, ro.StatusCode, ro.Elapsed)

	for _, vr := range ro.ValidationResults {
		for _, f := range vr.Failures {
			fmt.Fprintf(w, "        FAIL: %s\n", f)
		}
	}
}

func groupLabel(group string) string {
	if group == "" {
		return "(ungrouped)"
	}

	return group
}

// jsonGroup and jsonRun mirror outcome.GroupSummary/RunSummary for --json
// output, using lowerCamelCase field names rather than outcome's
// display-oriented struct.
type jsonCase struct {
	Name   string       `json:"name"`
	Status model.Status `json:"status"`
}

type jsonGroup struct {
	Group   string     `json:"group"`
	Pass    int        `json:"pass"`
	Fail    int        `json:"fail"`
	Skipped int        `json:"skipped"`
	Cases   []jsonCase `json:"cases"`
}

type jsonRun struct {
	Pass    int         `json:"pass"`
	Fail    int         `json:"fail"`
	Skipped int         `json:"skipped"`
	Groups  []jsonGroup `json:"groups"`
}

// PrintJSON writes summary as JSON to w, for the --json flag.
func PrintJSON(w io.Writer, summary outcome.RunSummary) error {
	run := jsonRun{Pass: summary.Pass, Fail: summary.Fail, Skipped: summary.Skipped}

	for _, g := range summary.Groups {
		jg := jsonGroup{Group: g.Group, Pass: g.Pass, Fail: g.Fail, Skipped: g.Skipped}
		for _, c := range g.CaseResults {
			jg.Cases = append(jg.Cases, jsonCase{Name: c.CaseName, Status: c.Status})
		}

		run.Groups = append(run.Groups, jg)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(run)
}
