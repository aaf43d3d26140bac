// Package validators implements the C4 validator algebra: pluggable,
// composable predicates over a captured response, plus the state-saver
// family that extracts values from a response into the case state map.
package validators

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

// ResponseCodeValidator passes iff the response status matches exactly.
type ResponseCodeValidator struct {
	WantStatusCode int
}

func (v *ResponseCodeValidator) Validate(resp *model.ResponseCapture, _ model.ResourceManager, _ model.State) model.ValidationResult {
	if resp.StatusCode != v.WantStatusCode {
		return model.Fail("Expected code %d, got %d", v.WantStatusCode, resp.StatusCode)
	}

	return model.Pass
}

// ResponseContentValidator verifies the response body equals either a named
// fixture resource's bytes or a previously-saved state value.
type ResponseContentValidator struct {
	// ExpectedResourceID, when set, compares against resources.GetFileContents.
	ExpectedResourceID string
	// ExpectedStateKey, when set, compares against state[ExpectedStateKey].
	ExpectedStateKey string
}

func (v *ResponseContentValidator) Validate(resp *model.ResponseCapture, resources model.ResourceManager, state model.State) model.ValidationResult {
	switch {
	case v.ExpectedResourceID != "":
		want, err := resources.GetFileContents(v.ExpectedResourceID)
		if err != nil {
			return model.Fail("ResponseContentValidator: %v", err)
		}

		if !bytesEqual(resp.BodyBytes, want) {
			return model.Fail("Response body did not match resource %q", v.ExpectedResourceID)
		}

		return model.Pass
	case v.ExpectedStateKey != "":
		want, ok := state[v.ExpectedStateKey]
		if !ok {
			return model.Fail("ResponseContentValidator: state key %q is unset", v.ExpectedStateKey)
		}

		if string(resp.BodyBytes) != want {
			return model.Fail("Response body did not match saved state %q", v.ExpectedStateKey)
		}

		return model.Pass
	default:
		return model.Fail("ResponseContentValidator: neither ExpectedResourceID nor ExpectedStateKey is set")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// HeaderAssertion enumerates the shapes a ResponseHeaderValidator can check.
type HeaderAssertion string

const (
	HeaderMustBeAbsent      HeaderAssertion = "Absent"
	HeaderMustBePresent     HeaderAssertion = "Present"
	HeaderEqualsLiteral     HeaderAssertion = "EqualsLiteral"
	HeaderEqualsState       HeaderAssertion = "EqualsState"
	HeaderIsAbsoluteURL     HeaderAssertion = "IsAbsoluteUrl"
)

// ResponseHeaderValidator checks one header's presence/absence/value/shape.
// Header lookup is case-insensitive.
type ResponseHeaderValidator struct {
	Header    string
	Assertion HeaderAssertion

	Literal  string // for HeaderEqualsLiteral
	StateKey string // for HeaderEqualsState

	// MustIncludeAccessToken, for HeaderIsAbsoluteURL, requires the header
	// value's query string to carry an access_token parameter. Per spec.md §9
	// this is a deliberate correction of the source's inverted check: fail
	// iff the parameter is absent when MustIncludeAccessToken is true.
	MustIncludeAccessToken bool
}

func (v *ResponseHeaderValidator) Validate(resp *model.ResponseCapture, _ model.ResourceManager, state model.State) model.ValidationResult {
	present := resp.Headers.Has(v.Header)
	value := resp.Headers.Get(v.Header)

	switch v.Assertion {
	case HeaderMustBeAbsent:
		if present {
			return model.Fail("Header %q must be absent, got %q", v.Header, value)
		}

		return model.Pass
	case HeaderMustBePresent:
		if !present {
			return model.Fail("Header %q must be present", v.Header)
		}

		return model.Pass
	case HeaderEqualsLiteral:
		if value != v.Literal {
			return model.Fail("Header %q expected %q, got %q", v.Header, v.Literal, value)
		}

		return model.Pass
	case HeaderEqualsState:
		want, ok := state[v.StateKey]
		if !ok {
			return model.Fail("Header %q: state key %q is unset", v.Header, v.StateKey)
		}

		if value != want {
			return model.Fail("Header %q expected saved value %q, got %q", v.Header, want, value)
		}

		return model.Pass
	case HeaderIsAbsoluteURL:
		return validateAbsoluteURL(value, v.MustIncludeAccessToken, fmt.Sprintf("Header %q", v.Header))
	default:
		return model.Fail("Header %q: unknown assertion %q", v.Header, v.Assertion)
	}
}

// validateAbsoluteURL parses value as an absolute URL and, when required,
// checks for an access_token query parameter.
func validateAbsoluteURL(value string, mustIncludeAccessToken bool, label string) model.ValidationResult {
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() {
		return model.Fail("%s: %q is not an absolute URL", label, value)
	}

	if mustIncludeAccessToken {
		if u.Query().Get("access_token") == "" {
			return model.Fail("%s: URL %q is missing the access_token query parameter", label, value)
		}
	}

	return model.Pass
}

// LockMismatchValidator is specialised for the lock-conflict response
// (typically HTTP 409): it checks X-WOPI-Lock against either a literal or a
// saved state value, tolerating a missing header when IsRequired is false.
type LockMismatchValidator struct {
	Literal    string
	StateKey   string
	IsRequired bool
}

const lockHeaderName = "X-WOPI-Lock"

func (v *LockMismatchValidator) Validate(resp *model.ResponseCapture, _ model.ResourceManager, state model.State) model.ValidationResult {
	if !resp.Headers.Has(lockHeaderName) {
		if v.IsRequired {
			return model.Fail("Expected %s header, none present", lockHeaderName)
		}

		return model.Pass
	}

	got := resp.Headers.Get(lockHeaderName)

	want := v.Literal
	if v.StateKey != "" {
		saved, ok := state[v.StateKey]
		if ok {
			want = saved
		}
	}

	if got != want {
		return model.Fail("Expected %s %q, got %q", lockHeaderName, want, got)
	}

	return model.Pass
}

// PropertyKind enumerates the JSON property-validator checks.
type PropertyKind string

const (
	PropertyString      PropertyKind = "String"
	PropertyInteger     PropertyKind = "Integer"
	PropertyLong        PropertyKind = "Long"
	PropertyBoolean     PropertyKind = "Boolean"
	PropertyEndsWith    PropertyKind = "EndsWith"
	PropertyRegex       PropertyKind = "Regex"
	PropertyAbsoluteURL PropertyKind = "AbsoluteUrl"
	PropertyArrayContains PropertyKind = "ArrayContains"
)

// PropertyValidator checks one JSON-path-selected token within a response
// body, as part of a JsonContentValidator.
type PropertyValidator struct {
	Name     string // diagnostic label
	JSONPath string
	Kind     PropertyKind
	IsRequired bool

	// ExpectedLiteral and ExpectedStateKey back the equality kinds
	// (String/Integer/Long/Boolean/EndsWith). Per spec.md §4.4 and §9:
	// saved state wins when present and coercible to the property's type;
	// otherwise falls back to the literal.
	ExpectedLiteral  string
	ExpectedStateKey string

	// Regex/ShouldMatch back PropertyRegex.
	Regex       string
	ShouldMatch bool

	// MustIncludeAccessToken backs PropertyAbsoluteURL.
	MustIncludeAccessToken bool

	// ArrayContainsValue backs PropertyArrayContains (case-insensitive).
	ArrayContainsValue string
}

// JsonContentValidator parses the response body as a JSON object and applies
// each PropertyValidator in declaration order, aggregating every failure
// into one ValidationResult.
type JsonContentValidator struct {
	Properties []PropertyValidator
}

func (v *JsonContentValidator) Validate(resp *model.ResponseCapture, _ model.ResourceManager, state model.State) model.ValidationResult {
	var doc any
	if err := json.Unmarshal(resp.BodyBytes, &doc); err != nil {
		return model.Fail("JSON parse error: %v", err)
	}

	result := model.Pass
	for _, p := range v.Properties {
		result = result.Merge(validateProperty(p, doc, state))
	}

	return result
}

func validateProperty(p PropertyValidator, doc any, state model.State) model.ValidationResult {
	token, found := selectJSONPath(p.JSONPath, doc)
	if !found || isEmptyToken(token) {
		if p.IsRequired {
			return model.Fail("Required property missing: %s (%s)", p.Name, p.JSONPath)
		}

		return model.Pass
	}

	switch p.Kind {
	case PropertyString:
		return validateStringEquality(p, token, state)
	case PropertyInteger, PropertyLong:
		return validateNumericEquality(p, token, state)
	case PropertyBoolean:
		return validateBooleanEquality(p, token, state)
	case PropertyEndsWith:
		return validateEndsWith(p, token, state)
	case PropertyRegex:
		return validateRegex(p, token)
	case PropertyAbsoluteURL:
		return validateAbsoluteURL(fmt.Sprintf("%v", token), p.MustIncludeAccessToken, fmt.Sprintf("Property %s", p.Name))
	case PropertyArrayContains:
		return validateArrayContains(p, token)
	default:
		return model.Fail("Property %s: unknown kind %q", p.Name, p.Kind)
	}
}

// selectJSONPath resolves a JSONPath expression against the parsed document
// using PaesslerAG/jsonpath. A selector that matches nothing or errors is
// reported as "not found" rather than propagated — absence is a normal,
// expected outcome for an optional property.
func selectJSONPath(path string, doc any) (any, bool) {
	if path == "" {
		return nil, false
	}

	val, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, false
	}

	return val, true
}

func isEmptyToken(token any) bool {
	switch t := token.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// expectedValue implements the literal-vs-state precedence from spec.md
// §4.4/§9: saved state wins when present and coercible to kind; otherwise
// falls back to the literal.
func expectedValue(p PropertyValidator, state model.State) (string, bool) {
	if p.ExpectedStateKey != "" {
		if v, ok := state[p.ExpectedStateKey]; ok && coercibleTo(p.Kind, v) {
			return v, true
		}
	}

	if p.ExpectedLiteral != "" {
		return p.ExpectedLiteral, true
	}

	return "", false
}

// coercibleTo reports whether v parses as the wire representation kind
// expects. String/EndsWith/Regex/AbsoluteUrl/ArrayContains accept any text.
func coercibleTo(kind PropertyKind, v string) bool {
	switch kind {
	case PropertyInteger, PropertyLong:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	case PropertyBoolean:
		_, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil
	default:
		return true
	}
}

func validateStringEquality(p PropertyValidator, token any, state model.State) model.ValidationResult {
	want, ok := expectedValue(p, state)
	if !ok {
		return model.Pass
	}

	got := fmt.Sprintf("%v", token)
	if got != want {
		return model.Fail("Property %s expected %q, got %q", p.Name, want, got)
	}

	return model.Pass
}

func validateNumericEquality(p PropertyValidator, token any, state model.State) model.ValidationResult {
	want, ok := expectedValue(p, state)
	if !ok {
		return model.Pass
	}

	wantNum, err := strconv.ParseInt(strings.TrimSpace(want), 10, 64)
	if err != nil {
		return model.Fail("Property %s: expected value %q is not an integer", p.Name, want)
	}

	gotNum, ok := toInt64(token)
	if !ok {
		return model.Fail("Property %s: response token %v is not an integer", p.Name, token)
	}

	if gotNum != wantNum {
		return model.Fail("Property %s expected %d, got %d", p.Name, wantNum, gotNum)
	}

	return model.Pass
}

func toInt64(token any) (int64, bool) {
	switch t := token.(type) {
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func validateBooleanEquality(p PropertyValidator, token any, state model.State) model.ValidationResult {
	want, ok := expectedValue(p, state)
	if !ok {
		return model.Pass
	}

	wantBool, err := strconv.ParseBool(strings.TrimSpace(want))
	if err != nil {
		return model.Fail("Property %s: expected value %q is not a boolean", p.Name, want)
	}

	gotBool, ok := toBool(token)
	if !ok {
		return model.Fail("Property %s: response token %v is not a boolean", p.Name, token)
	}

	if gotBool != wantBool {
		return model.Fail("Property %s expected %t, got %t", p.Name, wantBool, gotBool)
	}

	return model.Pass
}

func toBool(token any) (bool, bool) {
	switch t := token.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

func validateEndsWith(p PropertyValidator, token any, state model.State) model.ValidationResult {
	want, ok := expectedValue(p, state)
	if !ok {
		return model.Pass
	}

	got := fmt.Sprintf("%v", token)
	if !strings.HasSuffix(got, want) {
		return model.Fail("Property %s expected to end with %q, got %q", p.Name, want, got)
	}

	return model.Pass
}

func validateRegex(p PropertyValidator, token any) model.ValidationResult {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return model.Fail("Property %s: invalid regex %q: %v", p.Name, p.Regex, err)
	}

	got := fmt.Sprintf("%v", token)
	matched := re.MatchString(got)

	if matched != p.ShouldMatch {
		if p.ShouldMatch {
			return model.Fail("Property %s: %q does not match /%s/", p.Name, got, p.Regex)
		}

		return model.Fail("Property %s: %q must not match /%s/", p.Name, got, p.Regex)
	}

	return model.Pass
}

func validateArrayContains(p PropertyValidator, token any) model.ValidationResult {
	arr, ok := token.([]any)
	if !ok {
		return model.Fail("Property %s: token is not an array", p.Name)
	}

	want := strings.ToLower(p.ArrayContainsValue)
	for _, item := range arr {
		if strings.ToLower(fmt.Sprintf("%v", item)) == want {
			return model.Pass
		}
	}

	return model.Fail("Property %s: array does not contain %q", p.Name, p.ArrayContainsValue)
}

// SaveResponseHeader copies a header's value into state[as].
func SaveResponseHeader(resp *model.ResponseCapture, state model.State, header, as string) {
	if resp.Headers.Has(header) {
		state[as] = resp.Headers.Get(header)
	}
}

// SaveJSONProperty copies a JSON-path-selected token's textual form into
// state[as]. A selector that matches nothing leaves the key unset.
func SaveJSONProperty(resp *model.ResponseCapture, state model.State, jsonPath, as string) error {
	var doc any
	if err := json.Unmarshal(resp.BodyBytes, &doc); err != nil {
		return fmt.Errorf("SaveJsonProperty: %w", err)
	}

	token, found := selectJSONPath(jsonPath, doc)
	if !found {
		return nil
	}

	state[as] = fmt.Sprintf("%v", token)

	return nil
}

// SaveResponseBody copies the raw body into state[as], either as base-64 or
// as UTF-8 text.
func SaveResponseBody(resp *model.ResponseCapture, state model.State, as string, asBase64 bool) {
	if asBase64 {
		state[as] = base64.StdEncoding.EncodeToString(resp.BodyBytes)
		return
	}

	state[as] = string(resp.BodyBytes)
}

// SaveState unconditionally sets state[key] = value.
func SaveState(state model.State, key, value string) {
	state[key] = value
}

// Apply runs every state saver declared on a request, in order.
func Apply(savers []model.StateSaver, resp *model.ResponseCapture, state model.State) error {
	for _, s := range savers {
		switch s.Kind {
		case model.SaveResponseHeaderKind:
			SaveResponseHeader(resp, state, s.Header, s.As)
		case model.SaveJSONPropertyKind:
			if err := SaveJSONProperty(resp, state, s.JSONPath, s.As); err != nil {
				return err
			}
		case model.SaveResponseBodyKind:
			SaveResponseBody(resp, state, s.As, s.AsBase64)
		case model.SaveStateKind:
			SaveState(state, s.Key, s.Value)
		default:
			return fmt.Errorf("validators: unknown state saver kind %q", s.Kind)
		}
	}

	return nil
}
