package executor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/validators"
)

// CaseLookup resolves a named prerequisite TestCase from the catalog.
type CaseLookup func(name string) *model.TestCase

// CaseExecutor runs one TestCase to completion: Setup → RunRequests →
// Cleanup → Report (spec.md §4.6).
type CaseExecutor struct {
	Runner    *RequestRunner
	Resources model.ResourceManager
	Lookup    CaseLookup
	Logger    *slog.Logger
}

// NewCaseExecutor builds a CaseExecutor.
func NewCaseExecutor(runner *RequestRunner, resources model.ResourceManager, lookup CaseLookup, logger *slog.Logger) *CaseExecutor {
	return &CaseExecutor{Runner: runner, Resources: resources, Lookup: lookup, Logger: logger}
}

// seedState returns freshly-seeded State for a case run (spec.md §3: "each
// case starts with a fresh map seeded with endpoint context").
func seedState(cfg Config) model.State {
	return model.State{
		model.StateWopiEndpoint:   cfg.Endpoint,
		model.StateAccessToken:    cfg.AccessToken,
		model.StateAccessTokenTTL: formatSeconds(cfg.AccessTokenTTL),
	}
}

// Run executes tc and returns its CaseResult. allowPrerequisites controls
// whether a request's FollowupPrerequisiteName is honored — false when tc is
// itself being run as someone else's prerequisite, enforcing spec.md §4.6's
// "single level; no nested prerequisites."
func (e *CaseExecutor) Run(ctx context.Context, tc *model.TestCase, allowPrerequisites bool) model.CaseResult {
	result := model.CaseResult{CaseName: tc.Name, Group: tc.Group, Category: tc.Category, FinalFailMessage: tc.FailMessage}

	state := seedState(e.Runner.Config)

	if tc.UploadDocumentOnSetup {
		outcome, err := e.setup(ctx, tc, state)
		if err != nil {
			result.Status = model.StatusFail
			result.RequestOutcomes = append(result.RequestOutcomes, model.RequestOutcome{
				RequestName:       "Setup:PutFile",
				ValidationResults: []model.ValidationResult{model.Fail("setup failed: %v", err)},
				StateAfter:        state.Clone(),
			})

			e.runCleanup(ctx, tc, state, &result)

			return result
		}

		result.RequestOutcomes = append(result.RequestOutcomes, outcome)

		if outcome.Failed() {
			result.Status = model.StatusFail

			e.runCleanup(ctx, tc, state, &result)

			return result
		}
	}

	skipped := false
	standardFailed := false
	standardCount := 0

	for _, req := range tc.Requests {
		outcome := e.Runner.Run(ctx, req, tc.Category, state)
		result.RequestOutcomes = append(result.RequestOutcomes, outcome)
		standardCount++

		if outcome.Failed() {
			standardFailed = true
		}

		if allowPrerequisites && req.FollowupPrerequisiteName != "" {
			pre := e.Lookup(req.FollowupPrerequisiteName)
			if pre == nil {
				result.RequestOutcomes[len(result.RequestOutcomes)-1].ValidationResults = append(
					result.RequestOutcomes[len(result.RequestOutcomes)-1].ValidationResults,
					model.Fail("unknown prerequisite case %q", req.FollowupPrerequisiteName))
				standardFailed = true

				break
			}

			preResult := e.Run(ctx, pre, false)
			if preResult.Status != model.StatusPass {
				e.Logger.Debug("prerequisite gated parent case",
					slog.String("case", tc.Name),
					slog.String("prerequisite", pre.Name),
					slog.String("prerequisite_status", string(preResult.Status)))

				skipped = true

				break
			}
		}
	}

	e.runCleanup(ctx, tc, state, &result)

	result.Status = reduceStatus(standardCount, standardFailed, skipped)

	return result
}

// setupPutFileRequestName names the synthetic PutFile request setup() issues,
// distinct from any catalog-declared request name.
const setupPutFileRequestName = "Setup:PutFile"

// setup seeds {File, FileExtension, BaseFileName} from the case's resource
// and performs PutFile of the resource bytes (spec.md §4.6), via the same
// RequestRunner every catalog-declared request uses so proof-key signing,
// the access-token query parameter, and User-Agent selection all apply
// identically.
func (e *CaseExecutor) setup(ctx context.Context, tc *model.TestCase, state model.State) (model.RequestOutcome, error) {
	name, err := e.Resources.GetFileName(tc.ResourceID)
	if err != nil {
		return model.RequestOutcome{}, err
	}

	state[model.StateFile] = name
	state[model.StateBaseFileName] = name
	state[model.StateFileExtension] = extensionOf(name)

	content, err := e.Resources.GetFileContents(tc.ResourceID)
	if err != nil {
		return model.RequestOutcome{}, err
	}

	req := &model.Request{
		Name:             setupPutFileRequestName,
		Method:           "POST",
		URLTemplate:      "{WopiEndpoint}/files/{File}/contents",
		WantStatusCode:   200,
		RequiresProofKey: true,
		HeaderTemplates:  []model.HeaderTemplate{{Name: "X-WOPI-Override", Template: "PUT"}},
		BodyTemplate:     &model.BodyTemplate{Bytes: content},
		Validators:       []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}},
	}

	return e.Runner.Run(ctx, req, tc.Category, state), nil
}

func extensionOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}

	return ""
}

// runCleanup always runs cleanupRequests when deleteDocumentOnTearDown or
// any request declares alwaysRunCleanup, regardless of prior failure
// (spec.md §4.6, the "Cleanup guarantee" in §8).
func (e *CaseExecutor) runCleanup(ctx context.Context, tc *model.TestCase, state model.State, result *model.CaseResult) {
	runAlways := tc.DeleteDocumentOnTearDown
	if !runAlways {
		for _, req := range tc.Requests {
			if req.AlwaysRunCleanup {
				runAlways = true
				break
			}
		}
	}

	if !runAlways || len(tc.CleanupRequests) == 0 {
		return
	}

	for _, req := range tc.CleanupRequests {
		outcome := e.Runner.Run(ctx, req, tc.Category, state)
		result.RequestOutcomes = append(result.RequestOutcomes, outcome)
	}
}

// reduceStatus implements spec.md §4.6's Report rule: Pass iff at least one
// standard request ran and none had validation failures; Skipped iff a declared
// prerequisite was unmet; Fail otherwise. Cleanup-request outcomes are
// recorded for diagnostics but never flip a case's Pass to Fail — only the
// standard sequence gates status.
func reduceStatus(standardCount int, standardFailed, skipped bool) model.Status {
	if skipped {
		return model.StatusSkipped
	}

	if standardFailed || standardCount == 0 {
		return model.StatusFail
	}

	return model.StatusPass
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d.Seconds()), 10)
}
