package tester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "testers.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const twoTesters = `{"testers": [
	{"name": "Jason", "biography": "Veteran tester."},
	{"name": "Alice", "biography": "Accessibility specialist."}
]}`

func TestSelectDefault(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, twoTesters), testLogger())

	selected := r.Select(nil)
	require.Len(t, selected, 1)
	assert.Equal(t, "Jason", selected[0].Name)
}

func TestSelectSubstringCaseInsensitive(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, twoTesters), testLogger())

	selected := r.Select([]string{"alice"})
	require.Len(t, selected, 1)
	assert.Equal(t, "Alice", selected[0].Name)

	selected = r.Select([]string{"ALICE", "bob"})
	require.Len(t, selected, 1)
	assert.Equal(t, "Alice", selected[0].Name)
}

func TestSelectNoMatchFallsBack(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, twoTesters), testLogger())

	selected := r.Select([]string{"nonexistent"})
	require.Len(t, selected, 1)
	assert.Equal(t, "Jason", selected[0].Name)
}

func TestSelectPreservesCatalogOrder(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, twoTesters), testLogger())

	selected := r.Select([]string{"alice", "jason"})
	require.Len(t, selected, 2)
	assert.Equal(t, "Jason", selected[0].Name)
	assert.Equal(t, "Alice", selected[1].Name)
}

func TestMissingCatalogDegradesToEmpty(t *testing.T) {
	r := NewRegistryFromFile(filepath.Join(t.TempDir(), "nope.json"), testLogger())

	assert.Zero(t, r.Len())
	assert.Empty(t, r.Select(nil))
	assert.Empty(t, r.Select([]string{"jason"}))
}

func TestMalformedCatalogDegradesToEmpty(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, "{not json"), testLogger())
	assert.Zero(t, r.Len())
}

func TestMissingTestersKeyDegradesToEmpty(t *testing.T) {
	r := NewRegistryFromFile(writeCatalog(t, `{"reporters": []}`), testLogger())
	assert.Zero(t, r.Len())
}

func TestBuiltinCatalogHasDefaultTester(t *testing.T) {
	r := NewRegistry(testLogger())

	require.NotZero(t, r.Len())
	selected := r.Select(nil)
	require.Len(t, selected, 1)
	assert.Equal(t, "Jason", selected[0].Name)
}
