package tenant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	t.Run("empty context is not ready", func(t *testing.T) {
		c, err := New(nil)
		require.NoError(t, err)
		require.False(t, c.Ready())
		require.Equal(t, "", c.Get())

		_, err = c.Require()
		require.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("set and clear", func(t *testing.T) {
		c, err := New(nil)
		require.NoError(t, err)

		require.NoError(t, c.Set("org-a"))
		require.True(t, c.Ready())
		orgID, err := c.Require()
		require.NoError(t, err)
		require.Equal(t, "org-a", orgID)

		require.NoError(t, c.Set(""))
		require.False(t, c.Ready())
	})

	t.Run("set keeps the stored token", func(t *testing.T) {
		p := &MemoryPersister{}
		require.NoError(t, p.Save(State{Token: "tok"}))

		c, err := New(p)
		require.NoError(t, err)
		require.NoError(t, c.Set("org-b"))

		state, err := p.Load()
		require.NoError(t, err)
		require.Equal(t, "org-b", state.OrgID)
		require.Equal(t, "tok", state.Token)
	})
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, ErrNotReady)

	_, err = FromContext(WithOrgID(context.Background(), ""))
	require.ErrorIs(t, err, ErrNotReady)

	orgID, err := FromContext(WithOrgID(context.Background(), "org-a"))
	require.NoError(t, err)
	require.Equal(t, "org-a", orgID)
}

func TestFilePersister(t *testing.T) {
	dir := t.TempDir()

	p, err := NewFilePersister(dir)
	require.NoError(t, err)

	t.Run("missing file is empty state", func(t *testing.T) {
		state, err := p.Load()
		require.NoError(t, err)
		require.Equal(t, "", state.OrgID)
	})

	t.Run("survives a new context", func(t *testing.T) {
		c, err := New(p)
		require.NoError(t, err)
		require.NoError(t, c.Set("org-a"))

		reopened, err := NewFilePersister(dir)
		require.NoError(t, err)
		restored, err := New(reopened)
		require.NoError(t, err)
		require.Equal(t, "org-a", restored.Get())
	})

	t.Run("file is private", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(dir, "session.json"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(bad, "session.json"), []byte("{"), 0600))

		p, err := NewFilePersister(bad)
		require.NoError(t, err)
		_, err = New(p)
		require.Error(t, err)
	})
}
