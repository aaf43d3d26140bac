package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

const sampleCatalog = `<?xml version="1.0" encoding="utf-8"?>
<TestCases>
  <Resources>
    <Resource id="doc1" filename="sample.docx" />
  </Resources>
  <Requests>
    <Request name="CheckFileInfo" method="GET" url="{WopiEndpoint}/files/{File}" wantStatusCode="200" requiresProofKey="true">
      <Validators>
        <Validator type="ResponseCode" wantStatusCode="200" />
      </Validators>
    </Request>
    <Request name="Lock" method="POST" url="{WopiEndpoint}/files/{File}" wantStatusCode="200">
      <Headers>
        <Header name="X-WOPI-Override" value="LOCK" />
      </Headers>
    </Request>
  </Requests>
  <TestGroup name="Locking">
    <TestCase name="LockThenCheck" category="WopiCore" resourceId="doc1">
      <Request ref="Lock" />
      <Request ref="CheckFileInfo" />
    </TestCase>
  </TestGroup>
</TestCases>
`

func TestParseBuildsCatalog(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, cat.Resources, 1)
	require.Equal(t, "doc1", cat.Resources[0].ID)

	require.Len(t, cat.Cases, 1)
	tc := cat.Cases[0]
	require.Equal(t, "LockThenCheck", tc.Name)
	require.Equal(t, "Locking", tc.Group)
	require.Equal(t, model.CategoryWopiCore, tc.Category)
	require.Len(t, tc.Requests, 2)
	require.Equal(t, "Lock", tc.Requests[0].Name)
	require.Equal(t, "CheckFileInfo", tc.Requests[1].Name)
	require.True(t, tc.Requests[1].RequiresProofKey)
	require.Len(t, tc.Requests[1].Validators, 1)
}

func TestCaseByName(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	require.NotNil(t, cat.CaseByName("LockThenCheck"))
	require.Nil(t, cat.CaseByName("Missing"))
}

func TestParseUnknownResourceID(t *testing.T) {
	bad := `<TestCases>
  <Requests>
    <Request name="Req1" method="GET" url="x" />
  </Requests>
  <TestGroup name="G">
    <TestCase name="C1" category="WopiCore" resourceId="doesNotExist">
      <Request ref="Req1" />
    </TestCase>
  </TestGroup>
</TestCases>`

	_, err := Parse([]byte(bad))
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Reasons[0], "doesNotExist")
}

func TestParseUnknownRequestRef(t *testing.T) {
	bad := `<TestCases>
  <Resources><Resource id="doc1" filename="a.docx" /></Resources>
  <TestGroup name="G">
    <TestCase name="C1" category="WopiCore" resourceId="doc1">
      <Request ref="NoSuchRequest" />
    </TestCase>
  </TestGroup>
</TestCases>`

	_, err := Parse([]byte(bad))
	require.Error(t, err)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse([]byte("<TestCases"))
	require.Error(t, err)
}

func TestParseRequestBodyResourceID(t *testing.T) {
	withBodyResource := `<TestCases>
  <Resources><Resource id="doc1" filename="a.docx" /></Resources>
  <Requests>
    <Request name="PutFile" method="POST" url="{WopiEndpoint}/files/{File}/contents">
      <Body ResourceId="doc1" />
    </Request>
  </Requests>
  <TestGroup name="G">
    <TestCase name="C1" category="WopiCore" resourceId="doc1">
      <Request ref="PutFile" />
    </TestCase>
  </TestGroup>
</TestCases>`

	cat, err := Parse([]byte(withBodyResource))
	require.NoError(t, err)
	require.NotNil(t, cat.Cases[0].Requests[0].BodyTemplate)
	require.Equal(t, "doc1", cat.Cases[0].Requests[0].BodyTemplate.ResourceID)
}

func TestParseRequestDefaultMethod(t *testing.T) {
	withDefault := `<TestCases>
  <Resources><Resource id="doc1" filename="a.docx" /></Resources>
  <Requests>
    <Request name="Req1" url="x" />
  </Requests>
  <TestGroup name="G">
    <TestCase name="C1" category="WopiCore" resourceId="doc1">
      <Request ref="Req1" />
    </TestCase>
  </TestGroup>
</TestCases>`

	cat, err := Parse([]byte(withDefault))
	require.NoError(t, err)
	require.Equal(t, "GET", cat.Cases[0].Requests[0].Method)
}
