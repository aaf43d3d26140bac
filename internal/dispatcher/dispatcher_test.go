package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

func cases() []*model.TestCase {
	return []*model.TestCase{
		{Name: "Core1", Category: model.CategoryWopiCore, Group: "Core"},
		{Name: "Native1", Category: model.CategoryOfficeNativeClient, Group: "Native"},
		{Name: "Online1", Category: model.CategoryOfficeOnline, Group: "Online"},
	}
}

func TestSelectByNameIgnoresOtherFilters(t *testing.T) {
	out := Select(cases(), Filter{TestName: "Native1", TestCategory: CategoryWopiCore, TestGroup: "Core"})
	require.Len(t, out, 1)
	require.Equal(t, "Native1", out[0].Name)
}

func TestSelectByNameNotFound(t *testing.T) {
	out := Select(cases(), Filter{TestName: "Nope"})
	require.Empty(t, out)
}

func TestSelectCategoryLattice(t *testing.T) {
	all := Select(cases(), Filter{TestCategory: CategoryAll})
	require.Len(t, all, 3)

	core := Select(cases(), Filter{TestCategory: CategoryWopiCore})
	require.Len(t, core, 1)
	require.Equal(t, "Core1", core[0].Name)

	native := Select(cases(), Filter{TestCategory: CategoryOfficeNativeClient})
	require.Len(t, native, 2)
	require.Equal(t, "Core1", native[0].Name)
	require.Equal(t, "Native1", native[1].Name)

	online := Select(cases(), Filter{TestCategory: CategoryOfficeOnline})
	require.Len(t, online, 2)
	require.Equal(t, "Core1", online[0].Name)
	require.Equal(t, "Online1", online[1].Name)
}

func TestSelectGroupFilterIsCaseInsensitive(t *testing.T) {
	out := Select(cases(), Filter{TestCategory: CategoryAll, TestGroup: "core"})
	require.Len(t, out, 1)
	require.Equal(t, "Core1", out[0].Name)
}

func TestSelectPreservesCatalogOrder(t *testing.T) {
	out := Select(cases(), Filter{TestCategory: CategoryAll})
	require.Equal(t, []string{"Core1", "Native1", "Online1"}, []string{out[0].Name, out[1].Name, out[2].Name})
}
