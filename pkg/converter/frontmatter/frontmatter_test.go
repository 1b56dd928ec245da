// --- START OF FINAL REVISED FILE pkg/converter/frontmatter/frontmatter_test.go ---
package frontmatter_test

import (
	"testing"

	"github.com/stackvity/obs2org/pkg/converter/frontmatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    frontmatter.Meta
	}{
		{
			name:    "yaml list",
			content: "---\ntitle: Reading\ntags:\n  - books\n  - \"#to-read\"\n---\n# Body\n",
			want:    frontmatter.Meta{Title: "Reading", Tags: []string{"books", "to-read"}},
		},
		{
			name:    "yaml inline list and aliases",
			content: "---\ntags: [a, b, a]\naliases: [Other name]\n---\nbody",
			want:    frontmatter.Meta{Tags: []string{"a", "b"}, Aliases: []string{"Other name"}},
		},
		{
			name:    "yaml string tags",
			content: "---\ntags: alpha, beta gamma\n---\n",
			want:    frontmatter.Meta{Tags: []string{"alpha", "beta", "gamma"}},
		},
		{
			name:    "singular tag key",
			content: "---\ntag: solo\n---\n",
			want:    frontmatter.Meta{Tags: []string{"solo"}},
		},
		{
			name:    "toml",
			content: "+++\ntitle = \"T\"\ntags = [\"x\", \"y\"]\n+++\nbody",
			want:    frontmatter.Meta{Title: "T", Tags: []string{"x", "y"}},
		},
		{
			name:    "no front matter",
			content: "# Just a note\n\ntags: not front matter\n",
			want:    frontmatter.Meta{},
		},
		{
			name:    "empty content",
			content: "",
			want:    frontmatter.Meta{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := frontmatter.Read([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_Invalid(t *testing.T) {
	_, err := frontmatter.Read([]byte("---\ntags: [unclosed\n---\nbody"))
	require.Error(t, err)
	assert.ErrorIs(t, err, frontmatter.ErrInvalidFrontMatter)
}

// --- END OF FINAL REVISED FILE pkg/converter/frontmatter/frontmatter_test.go ---
