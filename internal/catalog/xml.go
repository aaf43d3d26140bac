// Package catalog parses the WOPI conformance test catalog XML (the
// declarative <Resources>/<Requests>/<TestCases>/<TestGroup> document) into
// the internal/model data model, applying field defaults and structural
// validation. The XML schema itself is an external, fixed attribute
// vocabulary (spec.md §6) — this package treats it opaquely once unmarshaled.
package catalog

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

// ConfigurationError wraps one or more structural problems found while
// parsing or validating a catalog: malformed XML, or references to an
// unknown resource/request. Fatal — aborts the run. Prerequisite names are
// not checked here; an unknown prerequisite fails its case at run time.
type ConfigurationError struct {
	Reasons []string
}

func (e *ConfigurationError) Error() string {
	msg := "catalog: invalid test catalog"
	for _, r := range e.Reasons {
		msg += "\n  - " + r
	}

	return msg
}

// xmlDocument mirrors the catalog's wire schema. Field names are mapped via
// struct tags so the Go types can diverge freely from the XML attribute
// vocabulary named in spec.md §6.
type xmlDocument struct {
	XMLName   xml.Name       `xml:"TestCases"`
	Resources []xmlResource  `xml:"Resources>Resource"`
	Requests  []xmlRequest   `xml:"Requests>Request"`
	Groups    []xmlTestGroup `xml:"TestGroup"`
}

type xmlResource struct {
	ID       string `xml:"id,attr"`
	Filename string `xml:"filename,attr"`
}

type xmlTestGroup struct {
	Name  string       `xml:"name,attr"`
	Cases []xmlTestCase `xml:"TestCase"`
}

type xmlTestCase struct {
	Name                     string            `xml:"name,attr"`
	Description              string            `xml:"description,attr"`
	Category                 string            `xml:"category,attr"`
	TestCaseType             string            `xml:"testCaseType,attr"`
	ResourceID               string            `xml:"resourceId,attr"`
	UploadDocumentOnSetup    bool              `xml:"uploadDocumentOnSetup,attr"`
	DeleteDocumentOnTearDown bool              `xml:"deleteDocumentOnTearDown,attr"`
	FailMessage              string            `xml:"failMessage,attr"`
	DocumentationLink        string            `xml:"documentationLink,attr"`
	UIScreenShot             string            `xml:"uiScreenShot,attr"`
	RequestRefs              []xmlRequestRef   `xml:"Request"`
	CleanupRequestRefs       []xmlRequestRef   `xml:"CleanupRequest"`
}

type xmlRequestRef struct {
	Ref string `xml:"ref,attr"`
}

type xmlRequest struct {
	Name                     string            `xml:"name,attr"`
	Method                   string            `xml:"method,attr"`
	URL                      string            `xml:"url,attr"`
	WantStatusCode           int               `xml:"wantStatusCode,attr"`
	WantStatusText           string            `xml:"wantStatusText,attr"`
	RequiresProofKey         bool              `xml:"requiresProofKey,attr"`
	FollowupPrerequisiteName string            `xml:"followupPrerequisiteName,attr"`
	AlwaysRunCleanup         bool              `xml:"alwaysRunCleanup,attr"`
	Body                     *xmlBody          `xml:"Body"`
	Headers                  []xmlHeader       `xml:"Headers>Header"`
	Validators               []xmlValidator    `xml:"Validators>Validator"`
	StateSavers              []xmlStateSaver   `xml:"StateSavers>StateSaver"`
}

type xmlBody struct {
	ResourceID string `xml:"ResourceId,attr"`
	Text       string `xml:",chardata"`
}

type xmlHeader struct {
	Name     string `xml:"name,attr"`
	Template string `xml:"value,attr"`
}

type xmlValidator struct {
	Type                   string             `xml:"type,attr"`
	WantStatusCode         int                `xml:"wantStatusCode,attr"`
	ExpectedResourceID     string             `xml:"expectedResourceId,attr"`
	ExpectedStateKey       string             `xml:"expectedStateKey,attr"`
	Header                 string             `xml:"header,attr"`
	Assertion              string             `xml:"assertion,attr"`
	Literal                string             `xml:"literal,attr"`
	StateKey               string             `xml:"stateKey,attr"`
	MustIncludeAccessToken bool               `xml:"mustIncludeAccessToken,attr"`
	IsRequired             bool               `xml:"isRequired,attr"`
	Properties             []xmlProperty      `xml:"Property"`
}

type xmlProperty struct {
	Name                   string `xml:"name,attr"`
	JSONPath               string `xml:"jsonPath,attr"`
	Kind                   string `xml:"kind,attr"`
	IsRequired             bool   `xml:"isRequired,attr"`
	ExpectedLiteral        string `xml:"expectedLiteral,attr"`
	ExpectedStateKey       string `xml:"expectedStateKey,attr"`
	Regex                  string `xml:"regex,attr"`
	ShouldMatch            bool   `xml:"shouldMatch,attr"`
	MustIncludeAccessToken bool   `xml:"mustIncludeAccessToken,attr"`
	ArrayContainsValue     string `xml:"arrayContainsValue,attr"`
}

type xmlStateSaver struct {
	Kind     string `xml:"kind,attr"`
	As       string `xml:"as,attr"`
	Header   string `xml:"header,attr"`
	JSONPath string `xml:"jsonPath,attr"`
	AsBase64 bool   `xml:"asBase64,attr"`
	Key      string `xml:"key,attr"`
	Value    string `xml:"value,attr"`
}

// Catalog is the fully-parsed, validated test catalog.
type Catalog struct {
	Resources []*model.Resource
	Cases     []*model.TestCase
}

// CaseByName returns the case with the given name, or nil.
func (c *Catalog) CaseByName(name string) *model.TestCase {
	for _, tc := range c.Cases {
		if tc.Name == name {
			return tc
		}
	}

	return nil
}

var validate = validator.New()

// Load reads and parses a catalog XML file from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied via -r flag
	if err != nil {
		return nil, &ConfigurationError{Reasons: []string{fmt.Sprintf("reading catalog %q: %v", path, err)}}
	}

	return Parse(data)
}

// Parse decodes catalog XML bytes into a validated Catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Reasons: []string{fmt.Sprintf("malformed catalog XML: %v", err)}}
	}

	resources := buildResources(doc.Resources)

	requestsByName := make(map[string]*model.Request, len(doc.Requests))

	var reasons []string

	for _, xr := range doc.Requests {
		req, errs := buildRequest(xr)
		reasons = append(reasons, errs...)
		requestsByName[xr.Name] = req
	}

	var cases []*model.TestCase

	for _, group := range doc.Groups {
		for _, xc := range group.Cases {
			tc, errs := buildCase(xc, group.Name, requestsByName, resources)
			reasons = append(reasons, errs...)
			cases = append(cases, tc)
		}
	}

	if len(reasons) > 0 {
		return nil, &ConfigurationError{Reasons: reasons}
	}

	return &Catalog{Resources: resources, Cases: cases}, nil
}

func buildResources(xrs []xmlResource) []*model.Resource {
	out := make([]*model.Resource, 0, len(xrs))
	for _, xr := range xrs {
		out = append(out, &model.Resource{ID: xr.ID, Filename: xr.Filename})
	}

	return out
}

func buildRequest(xr xmlRequest) (*model.Request, []string) {
	req := &model.Request{
		Name:                     xr.Name,
		Method:                   xr.Method,
		URLTemplate:              xr.URL,
		WantStatusCode:           xr.WantStatusCode,
		WantStatusText:           xr.WantStatusText,
		RequiresProofKey:         xr.RequiresProofKey,
		FollowupPrerequisiteName: xr.FollowupPrerequisiteName,
		AlwaysRunCleanup:         xr.AlwaysRunCleanup,
	}

	if err := defaults.Set(req); err != nil {
		return req, []string{fmt.Sprintf("request %q: applying defaults: %v", xr.Name, err)}
	}

	for _, h := range xr.Headers {
		req.HeaderTemplates = append(req.HeaderTemplates, model.HeaderTemplate{Name: h.Name, Template: h.Template})
	}

	if xr.Body != nil {
		switch {
		case xr.Body.ResourceID != "":
			req.BodyTemplate = &model.BodyTemplate{ResourceID: xr.Body.ResourceID}
		case xr.Body.Text != "":
			req.BodyTemplate = &model.BodyTemplate{Text: xr.Body.Text}
		}
	}

	for _, xv := range xr.Validators {
		req.Validators = append(req.Validators, buildValidator(xv))
	}

	for _, xs := range xr.StateSavers {
		req.StateSavers = append(req.StateSavers, model.StateSaver{
			Kind:     model.StateSaverKind(xs.Kind),
			As:       xs.As,
			Header:   xs.Header,
			JSONPath: xs.JSONPath,
			AsBase64: xs.AsBase64,
			Key:      xs.Key,
			Value:    xs.Value,
		})
	}

	var reasons []string
	if err := validate.Struct(req); err != nil {
		reasons = append(reasons, fmt.Sprintf("request %q: %v", xr.Name, err))
	}

	return req, reasons
}

func buildCase(
	xc xmlTestCase, group string, requestsByName map[string]*model.Request, resources []*model.Resource,
) (*model.TestCase, []string) {
	var reasons []string

	tc := &model.TestCase{
		Name:                     xc.Name,
		Description:              xc.Description,
		Group:                    group,
		Category:                 model.Category(xc.Category),
		TestCaseType:             model.CaseType(xc.TestCaseType),
		ResourceID:               xc.ResourceID,
		UploadDocumentOnSetup:    xc.UploadDocumentOnSetup,
		DeleteDocumentOnTearDown: xc.DeleteDocumentOnTearDown,
		FailMessage:              xc.FailMessage,
		DocumentationLink:        xc.DocumentationLink,
		UIScreenShot:             xc.UIScreenShot,
	}

	if tc.TestCaseType == "" {
		tc.TestCaseType = model.CaseTypeDefault
	}

	if !resourceExists(resources, tc.ResourceID) {
		reasons = append(reasons, fmt.Sprintf("case %q: references unknown resourceId %q", tc.Name, tc.ResourceID))
	}

	for _, ref := range xc.RequestRefs {
		req, ok := requestsByName[ref.Ref]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("case %q: references unknown request %q", tc.Name, ref.Ref))
			continue
		}

		tc.Requests = append(tc.Requests, req)
	}

	for _, ref := range xc.CleanupRequestRefs {
		req, ok := requestsByName[ref.Ref]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("case %q: references unknown cleanup request %q", tc.Name, ref.Ref))
			continue
		}

		tc.CleanupRequests = append(tc.CleanupRequests, req)
	}

	if err := validate.Struct(tc); err != nil {
		reasons = append(reasons, fmt.Sprintf("case %q: %v", tc.Name, err))
	}

	return tc, reasons
}

func resourceExists(resources []*model.Resource, id string) bool {
	for _, r := range resources {
		if r.ID == id {
			return true
		}
	}

	return false
}

func buildValidator(xv xmlValidator) model.Validator {
	return newValidator(xv)
}
