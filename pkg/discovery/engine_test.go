package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/gateway"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

type stubProvider struct {
	response gateway.Response
	err      error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	return s.response, s.err
}

func TestRunCodebase_EmptyDirectoryYieldsMinimalProfile(t *testing.T) {
	root := t.TempDir()
	gw := gateway.New(&stubProvider{})

	p, err := RunCodebase(context.Background(), gw, root, profile.Source{Kind: profile.SourceLocalDir, Value: root}, "a support bot")
	require.NoError(t, err)
	assert.Equal(t, 0.2, p.Confidence)
}

func TestRunCodebase_PersistsProfileOnSuccess(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "agent.py"), []byte("SYSTEM_PROMPT = 'be helpful'"), 0o644))

	gw := gateway.New(&stubProvider{
		response: gateway.Response{
			Text: `{"systemPrompt": "be helpful", "tools": [], "constraints": [], "findings": ["found system prompt"]}`,
		},
	})

	p, err := RunCodebase(context.Background(), gw, root, profile.Source{Kind: profile.SourceLocalDir, Value: root}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Evidence)

	_, err = os.Stat(profile.PathFor(root))
	assert.NoError(t, err, "profile should be persisted to disk")

	_, err = os.Stat(statePath(root))
	assert.Error(t, err, "resumability sidecar should be cleared after a completed run")
}

func TestRunCodebase_ResumesFromSavedState(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "agent.py"), []byte("system prompt code"), 0o644))

	tree, err := Orient(root)
	require.NoError(t, err)
	saveState(root, discoveryState{Stage: StageOrient, Tree: &tree})

	gw := gateway.New(&stubProvider{
		response: gateway.Response{Text: `{"findings": ["resumed"]}`},
	})

	p, err := RunCodebase(context.Background(), gw, root, profile.Source{Kind: profile.SourceLocalDir, Value: root}, "")
	require.NoError(t, err)
	assert.NotNil(t, p)
}
