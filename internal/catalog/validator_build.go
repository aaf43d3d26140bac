package catalog

import (
	"github.com/tylerbutler/wopi-validator-core/internal/model"
	"github.com/tylerbutler/wopi-validator-core/internal/validators"
)

// Validator type discriminators, as declared on <Validator type="..."> in
// the catalog XML.
const (
	validatorResponseCode    = "ResponseCode"
	validatorResponseContent = "ResponseContent"
	validatorResponseHeader  = "ResponseHeader"
	validatorLockMismatch    = "LockMismatch"
	validatorJSONContent     = "JsonContent"
)

// newValidator translates one parsed xmlValidator into its concrete
// model.Validator implementation.
func newValidator(xv xmlValidator) model.Validator {
	switch xv.Type {
	case validatorResponseCode:
		return &validators.ResponseCodeValidator{WantStatusCode: xv.WantStatusCode}
	case validatorResponseContent:
		return &validators.ResponseContentValidator{
			ExpectedResourceID: xv.ExpectedResourceID,
			ExpectedStateKey:   xv.ExpectedStateKey,
		}
	case validatorResponseHeader:
		return &validators.ResponseHeaderValidator{
			Header:                 xv.Header,
			Assertion:              validators.HeaderAssertion(xv.Assertion),
			Literal:                xv.Literal,
			StateKey:               xv.StateKey,
			MustIncludeAccessToken: xv.MustIncludeAccessToken,
		}
	case validatorLockMismatch:
		return &validators.LockMismatchValidator{
			Literal:    xv.Literal,
			StateKey:   xv.StateKey,
			IsRequired: xv.IsRequired,
		}
	case validatorJSONContent:
		jv := &validators.JsonContentValidator{}
		for _, p := range xv.Properties {
			jv.Properties = append(jv.Properties, validators.PropertyValidator{
				Name:                   p.Name,
				JSONPath:               p.JSONPath,
				Kind:                   validators.PropertyKind(p.Kind),
				IsRequired:             p.IsRequired,
				ExpectedLiteral:        p.ExpectedLiteral,
				ExpectedStateKey:       p.ExpectedStateKey,
				Regex:                  p.Regex,
				ShouldMatch:            p.ShouldMatch,
				MustIncludeAccessToken: p.MustIncludeAccessToken,
				ArrayContainsValue:     p.ArrayContainsValue,
			})
		}

		return jv
	default:
		return &unknownValidator{kind: xv.Type}
	}
}

// unknownValidator always fails, surfacing a catalog authoring mistake as a
// visible per-request failure rather than silently passing.
type unknownValidator struct {
	kind string
}

func (u *unknownValidator) Validate(_ *model.ResponseCapture, _ model.ResourceManager, _ model.State) model.ValidationResult {
	return model.Fail("unknown validator type %q", u.kind)
}
