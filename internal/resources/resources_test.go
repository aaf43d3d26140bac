package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

func TestLoadDirAndGet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.docx"), []byte("hello"), 0o644))

	m := NewManager()
	err := m.LoadDir(dir, []*model.Resource{{ID: "doc1", Filename: "sample.docx"}})
	require.NoError(t, err)

	data, err := m.GetFileContents("doc1")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	name, err := m.GetFileName("doc1")
	require.NoError(t, err)
	require.Equal(t, "sample.docx", name)
}

func TestGetFileContentsUnknown(t *testing.T) {
	m := NewManager()

	_, err := m.GetFileContents("missing")

	var unknown *UnknownResourceError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "missing", unknown.ResourceID)
}

func TestLoadDirMissingFixture(t *testing.T) {
	m := NewManager()
	err := m.LoadDir(t.TempDir(), []*model.Resource{{ID: "doc1", Filename: "absent.docx"}})
	require.Error(t, err)
}

func TestRegisterOverridesLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.docx"), []byte("from disk"), 0o644))

	m := NewManager()
	require.NoError(t, m.LoadDir(dir, []*model.Resource{{ID: "doc1", Filename: "sample.docx"}}))
	m.Register(&model.Resource{ID: "doc1", Filename: "inline.docx", Bytes: []byte("inline")})

	data, err := m.GetFileContents("doc1")
	require.NoError(t, err)
	require.Equal(t, []byte("inline"), data)
}

func TestExtension(t *testing.T) {
	require.Equal(t, "docx", Extension("file.docx"))
	require.Equal(t, "", Extension("noext"))
}
