package discovery

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOrient_ExcludesVendorDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "agent.py", "system prompt here")
	writeFile(t, root, "node_modules/pkg/index.js", "should be excluded")
	writeFile(t, root, ".git/HEAD", "should be excluded")

	tree, err := Orient(root)
	require.NoError(t, err)

	assert.Contains(t, tree.Files, "agent.py")
	for _, f := range tree.Files {
		assert.NotContains(t, f, "node_modules")
		assert.NotContains(t, f, ".git")
	}
}

func TestOrient_ReadsReadmeAndManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "this is my agent")
	writeFile(t, root, "package.json", `{"name": "agent"}`)

	tree, err := Orient(root)
	require.NoError(t, err)

	assert.Equal(t, "this is my agent", tree.ReadmeRaw)
	assert.Equal(t, `{"name": "agent"}`, tree.Manifests["package.json"])
}

func TestOrient_CapsAtMaxFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < maxOrientedFiles+20; i++ {
		writeFile(t, root, filepathIndex(i), "x")
	}

	tree, err := Orient(root)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tree.Files), maxOrientedFiles)
}

func filepathIndex(i int) string {
	return "f" + strconv.Itoa(i) + ".txt"
}
