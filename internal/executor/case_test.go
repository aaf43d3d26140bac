package executor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/validators"
)

type fakeResources struct{}

func (fakeResources) GetFileContents(string) ([]byte, error) { return []byte("content"), nil }
func (fakeResources) GetFileName(string) (string, error)     { return "sample.docx", nil }

func respond(statusCodes ...int) *fakeDoer {
	var responses []*http.Response
	for _, code := range statusCodes {
		responses = append(responses, &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}})
	}

	return &fakeDoer{responses: responses}
}

func newExecutor(doer *fakeDoer, lookup CaseLookup) *CaseExecutor {
	runner := NewRequestRunner(doer, fakeResources{}, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())
	return NewCaseExecutor(runner, fakeResources{}, lookup, newTestLogger())
}

func TestCaseExecutorPass(t *testing.T) {
	doer := respond(200)
	exec := newExecutor(doer, func(string) *model.TestCase { return nil })

	tc := &model.TestCase{
		Name:       "Simple",
		Category:   model.CategoryWopiCore,
		ResourceID: "doc1",
		Requests: []*model.Request{
			{Name: "CheckFileInfo", Method: "GET", URLTemplate: "https://host/files/f1", Validators: []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}}},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusPass, result.Status)
}

func TestCaseExecutorCleanupAlwaysRunsAfterFailure(t *testing.T) {
	doer := respond(500, 204)
	exec := newExecutor(doer, func(string) *model.TestCase { return nil })

	tc := &model.TestCase{
		Name:                     "FailsThenCleans",
		Category:                 model.CategoryWopiCore,
		ResourceID:               "doc1",
		DeleteDocumentOnTearDown: true,
		Requests: []*model.Request{
			{Name: "Lock", Method: "POST", URLTemplate: "https://host/files/f1", Validators: []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}}},
		},
		CleanupRequests: []*model.Request{
			{Name: "Delete", Method: "DELETE", URLTemplate: "https://host/files/f1"},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusFail, result.Status)
	require.Len(t, result.RequestOutcomes, 2, "cleanup request outcome must be recorded even though the case failed")
	require.Equal(t, "Delete", result.RequestOutcomes[1].RequestName)
}

func TestCaseExecutorCleanupOutcomeDoesNotFlipPassToFail(t *testing.T) {
	doer := respond(200, 500)
	exec := newExecutor(doer, func(string) *model.TestCase { return nil })

	tc := &model.TestCase{
		Name:                     "PassesCleanupFails",
		Category:                 model.CategoryWopiCore,
		ResourceID:               "doc1",
		DeleteDocumentOnTearDown: true,
		Requests: []*model.Request{
			{Name: "CheckFileInfo", Method: "GET", URLTemplate: "https://host/files/f1", Validators: []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}}},
		},
		CleanupRequests: []*model.Request{
			{Name: "Delete", Method: "DELETE", URLTemplate: "https://host/files/f1"},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusPass, result.Status)
}

func TestCaseExecutorSkippedOnUnmetPrerequisite(t *testing.T) {
	doer := respond(200, 500)

	prereq := &model.TestCase{
		Name:       "Prereq",
		Category:   model.CategoryWopiCore,
		ResourceID: "doc1",
		Requests: []*model.Request{
			{Name: "PrereqReq", Method: "GET", URLTemplate: "https://host/files/f1", Validators: []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}}},
		},
	}

	exec := newExecutor(doer, func(name string) *model.TestCase {
		if name == "Prereq" {
			return prereq
		}

		return nil
	})

	tc := &model.TestCase{
		Name:       "Parent",
		Category:   model.CategoryWopiCore,
		ResourceID: "doc1",
		Requests: []*model.Request{
			{Name: "ParentReq", Method: "GET", URLTemplate: "https://host/files/f1", FollowupPrerequisiteName: "Prereq"},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusSkipped, result.Status)
}

func TestCaseExecutorUnknownPrerequisiteFailsCase(t *testing.T) {
	doer := respond(200)
	exec := newExecutor(doer, func(string) *model.TestCase { return nil })

	tc := &model.TestCase{
		Name:       "Parent",
		Category:   model.CategoryWopiCore,
		ResourceID: "doc1",
		Requests: []*model.Request{
			{Name: "ParentReq", Method: "GET", URLTemplate: "https://host/files/f1", FollowupPrerequisiteName: "NoSuchCase"},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusFail, result.Status)
	require.True(t, result.RequestOutcomes[0].Failed())
}

func TestCaseExecutorSetupSeedsFileState(t *testing.T) {
	doer := respond(200, 200)
	exec := newExecutor(doer, func(string) *model.TestCase { return nil })

	tc := &model.TestCase{
		Name:                  "Setup",
		Category:              model.CategoryWopiCore,
		ResourceID:             "doc1",
		UploadDocumentOnSetup: true,
		Requests: []*model.Request{
			{Name: "CheckFileInfo", Method: "GET", URLTemplate: "https://host/files/{File}", Validators: []model.Validator{&validators.ResponseCodeValidator{WantStatusCode: 200}}},
		},
	}

	result := exec.Run(context.Background(), tc, true)
	require.Equal(t, model.StatusPass, result.Status)
	require.Len(t, result.RequestOutcomes, 2)
	require.Equal(t, "Setup:PutFile", result.RequestOutcomes[0].RequestName)
	require.Equal(t, "sample.docx", result.RequestOutcomes[0].StateAfter[model.StateFile])
	require.Equal(t, "docx", result.RequestOutcomes[0].StateAfter[model.StateFileExtension])
	require.Equal(t, "CheckFileInfo", result.RequestOutcomes[1].RequestName)
}
