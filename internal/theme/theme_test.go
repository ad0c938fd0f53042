package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEmbeddedThemes(t *testing.T) {
	themes := ListEmbeddedThemes()
	assert.Contains(t, themes, DefaultThemeName)
	assert.Contains(t, themes, "acme")
	assert.Contains(t, themes, "rio")
	assert.Contains(t, themes, "dark")
	assert.IsNonDecreasing(t, themes)
}

func TestLoad_Bundled(t *testing.T) {
	th, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultThemeName, th.Name)
	assert.True(t, th.Bundled())
	assert.Equal(t, "black", th.Palette.ActiveColor)
	assert.Equal(t, "#3465a4", th.Palette.MenuHighlight)
}

func TestLoad_Inherits(t *testing.T) {
	th, err := Load("", "rio")
	require.NoError(t, err)
	assert.Equal(t, "#222222", th.Palette.ActiveColor)
	assert.Equal(t, "black", th.Palette.MenuForeground, "filled from acme")
	assert.Equal(t, "#eaffff", th.Palette.TitlebarBackground, "filled from acme")
	assert.Empty(t, th.Palette.Inherits)
}

func TestLoad_UserShadowsBundled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.toml"),
		[]byte("inherits = \"dark\"\nactive_color = \"red\"\n"), 0o644))

	th, err := Load(dir, "acme")
	require.NoError(t, err)
	assert.False(t, th.Bundled())
	assert.Equal(t, "red", th.Palette.ActiveColor)
	assert.Equal(t, "#1c1c1c", th.Palette.MenuBackground)

	assert.Contains(t, List(dir), "acme")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.toml"), []byte(`inherits = "b"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.toml"), []byte(`inherits = "a"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("active_color = ["), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orphan.toml"), []byte(`inherits = "missing"`), 0o644))

	_, err := Load(dir, "a")
	assert.ErrorContains(t, err, "cycle")

	_, err = Load(dir, "broken")
	assert.Error(t, err)

	_, err = Load(dir, "orphan")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(dir, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(dir, "../etc/passwd")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.toml"), []byte(`active_color = "red"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names := List(dir)
	assert.Contains(t, names, "mine")
	assert.Contains(t, names, DefaultThemeName)
	assert.NotContains(t, names, "notes")
	assert.Len(t, names, len(ListEmbeddedThemes())+1)
}
