package executor

import (
	"net/http"
	"time"

	"github.com/tylerbutler/wopi-validator-core/internal/proofkey"
)

// HTTPDoer is the minimal http.Client surface the executor depends on —
// narrowed for test injection, the same shape the teacher narrows
// *http.Client to in internal/graph.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config bundles everything the executor needs that is constant for an
// entire run: the target endpoint, credentials, proof-key signers, and the
// two User-Agent strings the wire contract distinguishes between.
type Config struct {
	Endpoint       string
	AccessToken    string
	AccessTokenTTL time.Duration

	// ProofKey and ProofKeyOld sign with the current and previous proof-key
	// pairs respectively. ProofKeyOld may be nil when no key rotation is
	// configured; X-WOPI-ProofOld is then omitted.
	ProofKey    *proofkey.Signer
	ProofKeyOld *proofkey.Signer

	CoreUserAgent         string
	OfficeNativeUserAgent string
}

// NewHTTPClient builds the *http.Client the executor issues requests
// with: redirects are never followed automatically (spec.md §4.5 step 4 —
// "do not follow redirects automatically; they are asserted explicitly"),
// and the timeout is derived from AccessTokenTTL the way the teacher derives
// its client timeout from a fixed constant (root.go defaultHTTPClient).
func NewHTTPClient(ttl time.Duration) *http.Client {
	return &http.Client{
		Timeout: ttl,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
