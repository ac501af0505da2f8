package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/conceptc/internal/cli/output"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--project-dir", dir}, args...))
	err := cmd.Execute()
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "proj")
	_, err := execute(t, dir, "init", dir)
	require.NoError(t, err)
	return dir
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func conceptKeys(concepts []output.ConceptInfo) []string {
	keys := make([]string, len(concepts))
	for i, c := range concepts {
		keys[i] = c.Key
	}
	return keys
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "conceptc v"+Version)
}

func TestInit(t *testing.T) {
	dir := newProject(t)
	for _, f := range []string{"conceptc.yaml", ".gitignore", "types.yaml", "dsl/shop.cdsl", "macros/audit.star"} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(f)))
	}

	_, err := execute(t, dir, "init", dir)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, dir, "init", dir, "--force")
	require.NoError(t, err)
}

func TestBuildAndDiff(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, dir, "build", "-o", "json")
	require.NoError(t, err)
	first := decode[output.BuildOutput](t, out)

	keys := conceptKeys(first.Concepts)
	assert.NotEmpty(t, first.BuildID)
	assert.Equal(t, 1, first.Scripts)
	assert.Contains(t, keys, "EntityInfo Shop.Customer")
	assert.Contains(t, keys, "PropertyInfo Shop.Customer.CreatedAt", "macro from macros/audit.star")
	assert.Contains(t, keys, "ComputedInfo Shop.Order.Total", "type from types.yaml")
	assert.Less(t, indexOf(keys, "ModuleInfo Shop"), indexOf(keys, "EntityInfo Shop.Customer"))
	assert.Equal(t, len(keys), first.Added)

	out, err = execute(t, dir, "build", "-o", "json")
	require.NoError(t, err)
	second := decode[output.BuildOutput](t, out)
	assert.Zero(t, second.Added+second.Changed+second.Removed)

	script := filepath.Join(dir, "dsl", "shop.cdsl")
	src, err := os.ReadFile(script)
	require.NoError(t, err)
	src = bytes.Replace(src, []byte("LongString Notes;"), []byte("LongString Notes;\n        Bool Active;"), 1)
	require.NoError(t, os.WriteFile(script, src, 0o644))

	out, err = execute(t, dir, "diff", "-o", "json")
	require.NoError(t, err)
	d := decode[output.DiffOutput](t, out)
	assert.Equal(t, second.BuildID, d.Previous)
	assert.Equal(t, []string{"PropertyInfo Shop.Customer.Active"}, conceptKeys(d.Added))
	assert.Empty(t, d.Removed)

	out, err = execute(t, dir, "diff", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## Added (1)")
	assert.Contains(t, out, "`PropertyInfo Shop.Customer.Active`")

	out, err = execute(t, dir, "history", "-o", "json")
	require.NoError(t, err)
	builds := decode[[]output.BuildInfo](t, out)
	require.Len(t, builds, 2, "diff does not record without --save")
	assert.Equal(t, second.BuildID, builds[0].ID)
	assert.Equal(t, "completed", builds[0].Status)
}

func TestBuildNoCache(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, dir, "build", "--no-cache", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Concepts")
	assert.Contains(t, out, "no previous build")

	out, err = execute(t, dir, "history", "-o", "json")
	require.NoError(t, err)
	assert.Empty(t, decode[[]output.BuildInfo](t, out))
}

func TestKeysCommand(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, dir, "keys", "--type", "EntityInfo", "--sorted")
	require.NoError(t, err)
	assert.Equal(t, "EntityInfo Shop.Customer\nEntityInfo Shop.Order\n", out)
}

func TestDAGCommand(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, dir, "dag", "-o", "json")
	require.NoError(t, err)
	dag := decode[output.DAGOutput](t, out)
	require.NotEmpty(t, dag.Levels)
	assert.Equal(t, "ModuleInfo Shop", dag.Levels[0].Concepts[0].Key)
	assert.Positive(t, dag.TotalEdges)

	out, err = execute(t, dir, "dag", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Dependency Graph")
	assert.Contains(t, out, "## Level 0")
}

func TestTypesCommand(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, dir, "types", "-o", "json")
	require.NoError(t, err)
	types := decode[output.TypesOutput](t, out)

	var names []string
	for _, ti := range types.Types {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "EntityInfo")
	assert.Contains(t, names, "ComputedInfo")

	var macros []string
	for _, m := range types.Macros {
		macros = append(macros, m.Name)
	}
	assert.Contains(t, macros, "audit.created_at")

	out, err = execute(t, dir, "types", "--members", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| ComputedInfo |")
}

func TestBuildErrors(t *testing.T) {
	dir := newProject(t)
	bad := filepath.Join(dir, "dsl", "bad.cdsl")
	require.NoError(t, os.WriteFile(bad, []byte("Bogus X;"), 0o644))

	_, err := execute(t, dir, "build")
	var syntaxErr *dslerr.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestMissingDSLDir(t *testing.T) {
	_, err := execute(t, t.TempDir(), "build")
	require.ErrorContains(t, err, "dsl directory does not exist")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conceptc.yaml"), []byte("max_iterations: 0\n"), 0o644))

	_, err := execute(t, dir, "keys")
	require.ErrorContains(t, err, "max_iterations")
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
