package loader

import (
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/conceptc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Frontmatter
		wantErr string
	}{
		{
			name:    "no frontmatter",
			content: "Module M;",
		},
		{
			name:    "plain comment is not frontmatter",
			content: "/* Module M */\nModule M;",
		},
		{
			name:    "full frontmatter",
			content: "/*---\ndescription: Sales\ntags: [a, b]\ndisabled: true\nmeta:\n  owner: team\n---*/\nModule M;",
			want: &Frontmatter{
				Description: "Sales",
				Tags:        []string{"a", "b"},
				Disabled:    true,
				Meta:        map[string]any{"owner": "team"},
			},
		},
		{
			name:    "unknown field",
			content: "/*---\nowner: me\n---*/\n",
			wantErr: `unknown field "owner"`,
		},
		{
			name:    "invalid yaml",
			content: "/*---\ntags: [a\n---*/\n",
			wantErr: "invalid YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractFrontmatter(tt.content)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b.cdsl", "Module B;")
	testutil.WriteFile(t, dir, "a/z.cdsl", "Module Z;")
	testutil.WriteFile(t, dir, "a/y.cdsl", "/*---\ndisabled: true\n---*/\nModule Y;")
	testutil.WriteFile(t, dir, "notes.txt", "ignored")
	testutil.WriteFile(t, dir, ".hidden.cdsl", "Module H;")
	testutil.WriteFile(t, dir, ".git/x.cdsl", "Module G;")

	files, err := LoadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Script.Name)
	}
	assert.Equal(t, []string{"a/y.cdsl", "a/z.cdsl", "b.cdsl"}, names)
	assert.True(t, files[0].Disabled())

	scripts := Scripts(files)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a/z.cdsl", scripts[0].Name)
	assert.Equal(t, "Module Z;", scripts[0].Text)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "bad.cdsl", "/*---\ncolor: red\n---*/\n")
	_, err = LoadDir(dir)
	require.Error(t, err)
	var fieldErr *UnknownFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "bad.cdsl", fieldErr.File)
}
