// --- START OF FINAL REVISED FILE internal/testutil/helpers.go ---
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content to path, creating parent directories.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	dir := filepath.Dir(fullPath)
	require.NoError(t, os.MkdirAll(dir, 0o755), "Failed to create directory %s for dummy file", dir)
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644), "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at path.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	require.NoError(t, os.MkdirAll(fullPath, 0o755), "Failed to create dummy directory %s", fullPath)
}

// WriteVault creates a temporary vault holding notes, keyed by slash-separated
// relative path, and returns its root.
func WriteVault(t *testing.T, notes map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range notes {
		CreateDummyFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
	return root
}

// ReadOutput returns the content of a generated file below outputDir.
func ReadOutput(t *testing.T, outputDir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(rel)))
	require.NoError(t, err, "Failed to read output file %s", rel)
	return string(data)
}

// --- END OF FINAL REVISED FILE internal/testutil/helpers.go ---
