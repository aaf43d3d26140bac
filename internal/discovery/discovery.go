// Package discovery builds the offline "export proof-key discovery XML"
// document (spec.md §6): a <wopi-discovery> document carrying the current
// and previous proof-key public parameters.
package discovery

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/tylerbutler/wopi-validator-core/internal/proofkey"
)

// Document is the root element of the exported XML.
type Document struct {
	XMLName  xml.Name `xml:"wopi-discovery"`
	ProofKey ProofKey `xml:"proof-key"`
}

// ProofKey mirrors the <proof-key value= modulus= exponent= oldvalue=
// oldmodulus= oldexponent=/> element spec.md §6 names.
type ProofKey struct {
	Value       string `xml:"value,attr"`
	Modulus     string `xml:"modulus,attr"`
	Exponent    string `xml:"exponent,attr"`
	OldValue    string `xml:"oldvalue,attr,omitempty"`
	OldModulus  string `xml:"oldmodulus,attr,omitempty"`
	OldExponent string `xml:"oldexponent,attr,omitempty"`
}

// Build renders the discovery XML document for the current public key and,
// optionally, the previous one. Unlike the source's one-shot FormatXml (see
// spec.md §9, which writes formatted XML to a stream and then discards it
// and returns the unformatted text), this actually returns the indented
// bytes it produced.
func Build(current *rsa.PublicKey, old *rsa.PublicKey) ([]byte, error) {
	modulus, exponent := proofkey.PublicParameters(current)

	doc := Document{
		ProofKey: ProofKey{
			Value:    publicKeyValue(current),
			Modulus:  modulus,
			Exponent: exponent,
		},
	}

	if old != nil {
		oldModulus, oldExponent := proofkey.PublicParameters(old)
		doc.ProofKey.OldValue = publicKeyValue(old)
		doc.ProofKey.OldModulus = oldModulus
		doc.ProofKey.OldExponent = oldExponent
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("discovery: marshaling document: %w", err)
	}

	return append([]byte(xml.Header), out...), nil
}

// publicKeyValue encodes the public key as base-64 PKCS#1 DER — the "value"
// attribute the real protocol's wire format also carries as an opaque blob
// alongside the separately-exposed modulus/exponent.
func publicKeyValue(pub *rsa.PublicKey) string {
	return base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PublicKey(pub))
}
