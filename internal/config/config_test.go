package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("project-dir", "", "")
	fs.String("dsl-dir", "", "")
	fs.String("macros-dir", "", "")
	fs.String("types-file", "", "")
	fs.String("cache", "", "")
	fs.Int("max-iterations", 0, "")
	fs.Bool("allow-identical-duplicates", true, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Empty(t, cfg.File)
	assert.Equal(t, filepath.Join(dir, DefaultDSLDir), cfg.DSLDir)
	assert.Equal(t, filepath.Join(dir, DefaultMacrosDir), cfg.MacrosDir)
	assert.Equal(t, filepath.Join(dir, DefaultTypesFile), cfg.TypesFile)
	assert.Equal(t, filepath.Join(dir, DefaultCachePath), cfg.CachePath)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultMaxErrors, cfg.MaxErrors)
	assert.True(t, cfg.AllowIdenticalDuplicates)
	assert.Equal(t, "auto", cfg.OutputFormat)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "conceptc.yaml"), `
dsl_dir: concepts
max_iterations: 50
max_errors: 5
output: text
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "conceptc.yaml"), cfg.File)
		assert.Equal(t, filepath.Join(dir, "concepts"), cfg.DSLDir)
		assert.Equal(t, 50, cfg.MaxIterations)
		assert.Equal(t, 5, cfg.MaxErrors)
		assert.Equal(t, "text", cfg.OutputFormat)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("CONCEPTC_MAX_ITERATIONS", "75")
		t.Setenv("CONCEPTC_ALLOW_IDENTICAL_DUPLICATES", "false")
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, 75, cfg.MaxIterations)
		assert.False(t, cfg.AllowIdenticalDuplicates)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("CONCEPTC_MAX_ITERATIONS", "75")
		fs := testFlags()
		require.NoError(t, fs.Parse([]string{"--max-iterations", "10", "-o", "json"}))
		cfg, err := Load("", fs)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.MaxIterations)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 5, cfg.MaxErrors, "unset flags keep file values")
	})
}

func TestLoad_FlagPathsRelativeToWorkingDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "conceptc.yaml"), "dsl_dir: dsl\n")
	sub := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--macros-dir", "my-macros", "--cache", "cache.db"}))
	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot, "project root found upward")
	assert.Equal(t, filepath.Join(root, "dsl"), cfg.DSLDir)
	assert.Equal(t, filepath.Join(sub, "my-macros"), cfg.MacrosDir)
	assert.Equal(t, filepath.Join(sub, "cache.db"), cfg.CachePath)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "types_file: plugins/types.yaml\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "plugins", "types.yaml"), cfg.TypesFile)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "dsl_dir: [", "error reading config file"},
		{"zero iterations", "max_iterations: 0", "max_iterations must be at least 1"},
		{"negative errors", "max_errors: -1", "max_errors must not be negative"},
		{"unknown output", "output: html", `unknown output format "html"`},
		{"empty dsl dir", `dsl_dir: ""`, "dsl_dir is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			writeFile(t, filepath.Join(dir, "conceptc.yaml"), tt.content)

			_, err := Load("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DSLDir = filepath.Join(dir, "missing")
	assert.ErrorContains(t, cfg.ValidateDirectories(), "dsl directory does not exist")

	cfg.DSLDir = dir
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "discard fallback")

	logger := GetLogger(WithLogger(context.Background(), nil))
	assert.NotNil(t, logger)
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	cfg := Default()
	cfg.MaxErrors = 3
	assert.Same(t, cfg, FromContext(WithConfig(context.Background(), cfg)))
}
