package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/substitution"
	"github.com/tylerbutler/wopi-validator-core/internal/validators"
)

// Wire header names from spec.md §6. Declared once so request construction
// and tests agree on exact casing.
const (
	headerAuthorization = "Authorization"
	headerUserAgent     = "User-Agent"
	headerTimeStamp     = "X-WOPI-TimeStamp"
	headerProof         = "X-WOPI-Proof"
	headerProofOld      = "X-WOPI-ProofOld"
)

// stateAccessTokenURL holds the previous access token's full URL, when a
// case is exercising proof-key rotation. Set by catalog authors via a
// SaveState state saver on a login/rotation request.
const stateAccessTokenURL = "PreviousAccessTokenUrl"

// RequestRunner executes a single model.Request against the configured
// endpoint, synthesizing headers, capturing the response, running
// validators, and applying state savers.
type RequestRunner struct {
	HTTP      HTTPDoer
	Resources model.ResourceManager
	Config    Config
	Logger    *slog.Logger

	// Now returns the current time; overridden in tests to make the proof-key
	// timestamp deterministic. Defaults to time.Now.
	Now func() time.Time
}

// NewRequestRunner builds a RequestRunner with Now defaulted to time.Now.
func NewRequestRunner(doer HTTPDoer, resources model.ResourceManager, cfg Config, logger *slog.Logger) *RequestRunner {
	return &RequestRunner{HTTP: doer, Resources: resources, Config: cfg, Logger: logger, Now: time.Now}
}

// Run executes req against state, returning the RequestOutcome. It never
// returns a Go error for protocol-level failures — those are folded into
// the outcome per spec.md §7 (TransportError, ValidationFailure).
func (r *RequestRunner) Run(ctx context.Context, req *model.Request, category model.Category, state model.State) model.RequestOutcome {
	correlationID := uuid.NewString()
	logger := r.Logger.With(slog.String("request", req.Name), slog.String("correlation_id", correlationID))

	outcome := model.RequestOutcome{RequestName: req.Name}

	httpReq, substitutionFailure, err := r.buildHTTPRequest(ctx, req, category, state)
	if err != nil {
		outcome.TransportError = fmt.Sprintf("building request: %v", err)
		outcome.ValidationResults = append(outcome.ValidationResults, model.Fail("%s", outcome.TransportError))
		outcome.StateAfter = state.Clone()

		return outcome
	}

	if substitutionFailure != nil {
		outcome.ValidationResults = append(outcome.ValidationResults, model.Fail("%v", substitutionFailure))
	}

	start := r.Now()

	resp, err := r.HTTP.Do(httpReq)
	if err != nil {
		logger.Warn("transport error", slog.String("error", err.Error()))

		outcome.TransportError = fmt.Sprintf("Transport error: %v", err)
		outcome.ValidationResults = append(outcome.ValidationResults, model.Fail("%s", outcome.TransportError))
		outcome.StateAfter = state.Clone()

		return outcome
	}

	capture, err := captureResponse(resp, r.Now().Sub(start))
	if err != nil {
		outcome.TransportError = fmt.Sprintf("Transport error: reading response body: %v", err)
		outcome.ValidationResults = append(outcome.ValidationResults, model.Fail("%s", outcome.TransportError))
		outcome.StateAfter = state.Clone()

		return outcome
	}

	outcome.StatusCode = capture.StatusCode
	outcome.Elapsed = capture.Elapsed

	logger.Debug("response captured", slog.Int("status", capture.StatusCode), slog.Duration("elapsed", capture.Elapsed))

	for _, v := range req.Validators {
		outcome.ValidationResults = append(outcome.ValidationResults, v.Validate(capture, r.Resources, state))
	}

	if err := validators.Apply(req.StateSavers, capture, state); err != nil {
		outcome.ValidationResults = append(outcome.ValidationResults, model.Fail("state saver error: %v", err))
	}

	outcome.StateAfter = state.Clone()

	return outcome
}

// buildHTTPRequest expands templates, synthesizes wire headers, and
// constructs the *http.Request. The returned error is non-nil only for
// unrecoverable failures: a URL that does not parse, an unresolved body
// resource, or http.NewRequest itself rejecting the method/URL. Header/body variable substitution
// failures are instead returned as substitutionFailure and best-effort
// expanded so the request can still be sent.
func (r *RequestRunner) buildHTTPRequest(
	ctx context.Context, req *model.Request, category model.Category, state model.State,
) (httpReq *http.Request, substitutionFailure error, err error) {
	rawURL, uerr := substitution.Expand(req.URLTemplate, state)
	if uerr != nil {
		substitutionFailure = uerr
		rawURL = substitution.ExpandBestEffort(req.URLTemplate, state)
	}

	fullURL, err := appendAccessToken(rawURL, r.Config.AccessToken)
	if err != nil {
		return nil, substitutionFailure, err
	}

	var bodyBytes []byte

	if req.BodyTemplate != nil {
		switch {
		case req.BodyTemplate.ResourceID != "":
			content, rerr := r.Resources.GetFileContents(req.BodyTemplate.ResourceID)
			if rerr != nil {
				return nil, substitutionFailure, fmt.Errorf("resolving body resource %q: %w", req.BodyTemplate.ResourceID, rerr)
			}

			bodyBytes = content
		case req.BodyTemplate.IsText():
			text, berr := substitution.Expand(req.BodyTemplate.Text, state)
			if berr != nil {
				if substitutionFailure == nil {
					substitutionFailure = berr
				}

				text = substitution.ExpandBestEffort(req.BodyTemplate.Text, state)
			}

			bodyBytes = []byte(text)
		default:
			bodyBytes = req.BodyTemplate.Bytes
		}
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err = http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, substitutionFailure, fmt.Errorf("constructing request: %w", err)
	}

	for _, h := range req.HeaderTemplates {
		val, herr := substitution.Expand(h.Template, state)
		if herr != nil {
			if substitutionFailure == nil {
				substitutionFailure = herr
			}

			val = substitution.ExpandBestEffort(h.Template, state)
		}

		httpReq.Header.Add(h.Name, val)
	}

	httpReq.Header.Set(headerAuthorization, "Bearer "+r.Config.AccessToken)
	httpReq.Header.Set(headerUserAgent, userAgentFor(category, r.Config))

	if req.RequiresProofKey {
		r.signProofKey(httpReq, fullURL, state)
	}

	return httpReq, substitutionFailure, nil
}

// userAgentFor picks the Office-native-client user agent when the case's
// category demands it (spec.md §4.5 step 3), and the core user agent
// otherwise.
func userAgentFor(category model.Category, cfg Config) string {
	if category == model.CategoryOfficeNativeClient {
		return cfg.OfficeNativeUserAgent
	}

	return cfg.CoreUserAgent
}

// appendAccessToken adds access_token=<token> to rawURL's query string when
// not already present (spec.md §4.5 step 1).
func appendAccessToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}

	q := u.Query()
	if q.Get("access_token") == "" {
		q.Set("access_token", token)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// signProofKey synthesizes X-WOPI-TimeStamp and the proof-key signature
// headers (spec.md §4.5 step 2). Signing failures are logged and leave the
// corresponding header unset — a CryptoError at request time degrades to a
// missing header rather than aborting the run (spec.md §7: "per-request
// [crypto failure is] treated as a TransportError" — here it surfaces the
// same way a server would see it: the header is simply absent and the
// ResponseHeaderValidator/LockMismatchValidator report accordingly).
func (r *RequestRunner) signProofKey(httpReq *http.Request, fullURL string, state model.State) {
	ts := dotNetTicks(r.Now())
	httpReq.Header.Set(headerTimeStamp, strconv.FormatInt(ts, 10))

	if r.Config.ProofKey != nil {
		if sig, err := r.Config.ProofKey.Sign(r.Config.AccessToken, fullURL, ts); err == nil {
			httpReq.Header.Add(headerProof, sig)
		} else {
			r.Logger.Warn("proof-key signing failed", slog.String("error", err.Error()))
		}

		if prevURL, ok := state[stateAccessTokenURL]; ok && prevURL != "" {
			if sig, err := r.Config.ProofKey.Sign(r.Config.AccessToken, prevURL, ts); err == nil {
				httpReq.Header.Add(headerProof, sig)
			}
		}
	}

	if r.Config.ProofKeyOld != nil {
		if sig, err := r.Config.ProofKeyOld.Sign(r.Config.AccessToken, fullURL, ts); err == nil {
			httpReq.Header.Add(headerProofOld, sig)
		} else {
			r.Logger.Warn("old proof-key signing failed", slog.String("error", err.Error()))
		}
	}
}

// captureResponse fully drains and closes resp.Body, building an immutable
// ResponseCapture (spec.md §3) so validators never touch a one-shot reader.
func captureResponse(resp *http.Response, elapsed time.Duration) (*model.ResponseCapture, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	capture := &model.ResponseCapture{
		StatusCode: resp.StatusCode,
		StatusText: resp.Status,
		Headers:    model.Header(resp.Header),
		BodyBytes:  body,
		Elapsed:    elapsed,
	}

	if utf8.Valid(body) {
		capture.BodyText = string(body)
	}

	return capture, nil
}
