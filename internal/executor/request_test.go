package executor

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/proofkey"
)

type fakeDoer struct {
	requests  []*http.Request
	responses []*http.Response
	errs      []error
	call      int
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)

	idx := f.call
	f.call++

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}

	if idx < len(f.responses) {
		return f.responses[idx], nil
	}

	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestRunnerRunHappyPath(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{
		{StatusCode: 200, Status: "200 OK", Body: io.NopCloser(bytes.NewReader([]byte("ok"))), Header: http.Header{}},
	}}

	runner := NewRequestRunner(doer, nil, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())

	req := &model.Request{Name: "CheckFileInfo", Method: "GET", URLTemplate: "{WopiEndpoint}/files/{File}"}
	state := model.State{model.StateWopiEndpoint: "https://host", model.StateAccessToken: "tok", model.StateFile: "f1"}

	outcome := runner.Run(context.Background(), req, model.CategoryWopiCore, state)

	require.Equal(t, 200, outcome.StatusCode)
	require.False(t, outcome.Failed())
	require.Equal(t, "Bearer tok", doer.requests[0].Header.Get("Authorization"))
}

func TestRequestRunnerAppendsAccessTokenQueryParam(t *testing.T) {
	doer := &fakeDoer{}
	runner := NewRequestRunner(doer, nil, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())

	req := &model.Request{Name: "Req", Method: "GET", URLTemplate: "https://host/files/f1"}
	runner.Run(context.Background(), req, model.CategoryWopiCore, model.State{model.StateAccessToken: "tok"})

	require.Equal(t, "tok", doer.requests[0].URL.Query().Get("access_token"))
}

func TestRequestRunnerUnboundVariableDegradesToBestEffort(t *testing.T) {
	doer := &fakeDoer{}
	runner := NewRequestRunner(doer, nil, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())

	req := &model.Request{Name: "Req", Method: "GET", URLTemplate: "https://host/files/{Missing}"}
	outcome := runner.Run(context.Background(), req, model.CategoryWopiCore, model.State{model.StateAccessToken: "tok"})

	require.True(t, outcome.Failed())
	require.Len(t, doer.requests, 1, "request is still sent despite the unbound variable")
}

func TestRequestRunnerTransportError(t *testing.T) {
	doer := &fakeDoer{errs: []error{errTransport}}
	runner := NewRequestRunner(doer, nil, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())

	req := &model.Request{Name: "Req", Method: "GET", URLTemplate: "https://host/files/f1"}
	outcome := runner.Run(context.Background(), req, model.CategoryWopiCore, model.State{model.StateAccessToken: "tok"})

	require.True(t, outcome.Failed())
	require.NotEmpty(t, outcome.TransportError)
}

func TestRequestRunnerSignsProofKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	doer := &fakeDoer{}
	cfg := Config{Endpoint: "https://host", AccessToken: "tok", ProofKey: proofkey.NewSigner(key)}
	runner := NewRequestRunner(doer, nil, cfg, newTestLogger())
	runner.Now = func() time.Time { return time.Unix(0, 0) }

	req := &model.Request{Name: "Req", Method: "GET", URLTemplate: "https://host/files/f1", RequiresProofKey: true}
	runner.Run(context.Background(), req, model.CategoryWopiCore, model.State{model.StateAccessToken: "tok"})

	require.NotEmpty(t, doer.requests[0].Header.Get("X-WOPI-Proof"))
	require.NotEmpty(t, doer.requests[0].Header.Get("X-WOPI-TimeStamp"))
}

type fakeBodyResources struct{}

func (fakeBodyResources) GetFileContents(id string) ([]byte, error) {
	if id != "doc1" {
		return nil, errTransport
	}

	return []byte("fixture bytes"), nil
}

func (fakeBodyResources) GetFileName(string) (string, error) { return "sample.docx", nil }

func TestRequestRunnerResolvesBodyResource(t *testing.T) {
	doer := &fakeDoer{}
	runner := NewRequestRunner(doer, fakeBodyResources{}, Config{Endpoint: "https://host", AccessToken: "tok"}, newTestLogger())

	req := &model.Request{
		Name:         "PutFile",
		Method:       "POST",
		URLTemplate:  "https://host/files/f1/contents",
		BodyTemplate: &model.BodyTemplate{ResourceID: "doc1"},
	}

	outcome := runner.Run(context.Background(), req, model.CategoryWopiCore, model.State{model.StateAccessToken: "tok"})

	require.False(t, outcome.Failed())
	body, err := io.ReadAll(doer.requests[0].Body)
	require.NoError(t, err)
	require.Equal(t, "fixture bytes", string(body))
}

func TestUserAgentForOfficeNativeClient(t *testing.T) {
	cfg := Config{CoreUserAgent: "core/1.0", OfficeNativeUserAgent: "office/1.0"}
	require.Equal(t, "office/1.0", userAgentFor(model.CategoryOfficeNativeClient, cfg))
	require.Equal(t, "core/1.0", userAgentFor(model.CategoryWopiCore, cfg))
}

var errTransport = &transportError{}

type transportError struct{}

func (*transportError) Error() string { return "connection refused" }
