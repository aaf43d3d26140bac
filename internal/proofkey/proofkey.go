// Package proofkey implements the WOPI proof-key signature scheme: the
// canonical pre-signing byte buffer, RSA-SHA256 signing over it, and the
// base-64 modulus/exponent encoding used by the discovery-export utility.
package proofkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math/big"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrMissingAccessToken is returned when Sign is called without an access
// token — spec.md §4.1 names this the BadInputError case.
var ErrMissingAccessToken = errors.New("proofkey: access token is required")

// upperCaser performs locale-invariant ASCII-preserving uppercasing of the
// canonicalized URL. Unlike strings.ToUpper, which follows the current
// locale's case-folding tables, cases.Upper(language.Und) always applies the
// same Unicode simple-uppercase mapping regardless of host locale — see
// spec.md §9 "URL uppercasing."
var upperCaser = cases.Upper(language.Und)

// Signer signs WOPI proof-key buffers with an RSA private key.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner wraps an RSA private key for proof-key signing.
func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// CanonicalBytes builds the exact pre-signing byte buffer described in
// spec.md §4.1:
//
//	len32(token) | token | len32(upper(url)) | upper(url) | len32(8) | i64be(ts)
//
// All lengths are big-endian signed 32-bit; the timestamp is big-endian
// signed 64-bit. Fails with ErrMissingAccessToken when accessToken is empty.
func CanonicalBytes(accessToken, url string, timestamp int64) ([]byte, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	upperURL := upperCaser.String(url)

	tokenBytes := []byte(accessToken)
	urlBytes := []byte(upperURL)

	buf := make([]byte, 0, 4+len(tokenBytes)+4+len(urlBytes)+4+8)
	buf = appendInt32BE(buf, len(tokenBytes))
	buf = append(buf, tokenBytes...)
	buf = appendInt32BE(buf, len(urlBytes))
	buf = append(buf, urlBytes...)
	buf = appendInt32BE(buf, 8)
	buf = appendInt64BE(buf, timestamp)

	return buf, nil
}

func appendInt32BE(buf []byte, v int) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(int32(v))) //nolint:gosec // wire format is explicitly signed 32-bit

	return append(buf, tmp[:]...)
}

func appendInt64BE(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))

	return append(buf, tmp[:]...)
}

// Sign produces the base-64 RSASSA-PKCS1-v1_5/SHA-256 signature over the
// canonical buffer for (accessToken, url, timestamp).
func (s *Signer) Sign(accessToken, url string, timestamp int64) (string, error) {
	buf, err := CanonicalBytes(accessToken, url, timestamp)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(buf)

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKey returns the RSA public key half of s, for discovery export.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// PublicParameters returns a public key's modulus and exponent, each encoded
// as unsigned big-endian bytes and then standard base-64 — the form the
// discovery-export utility emits in <proof-key modulus= exponent=/>.
func PublicParameters(pub *rsa.PublicKey) (modulus, exponent string) {
	modulus = base64.StdEncoding.EncodeToString(pub.N.Bytes())

	expBytes := big.NewInt(int64(pub.E)).Bytes()
	exponent = base64.StdEncoding.EncodeToString(expBytes)

	return modulus, exponent
}
