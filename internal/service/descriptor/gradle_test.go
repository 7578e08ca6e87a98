package descriptor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

func writeGradleProps(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gradle.properties"), []byte(content), 0644))
	return dir
}

func TestGradleReadVersion(t *testing.T) {
	dir := writeGradleProps(t, "org.gradle.jvmargs=-Xmx2g\nversion=2.0.16-SNAPSHOT\ngroup=com.example\n")
	editor := NewGradleEditor()

	v, err := editor.ReadVersion(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "2.0.16-SNAPSHOT", v.String())
}

func TestGradleReadVersionMissingProperty(t *testing.T) {
	dir := writeGradleProps(t, "group=com.example\n")
	editor := NewGradleEditor()

	_, err := editor.ReadVersion(context.Background(), dir)
	assert.Equal(t, errors.KindDescriptor, errors.GetKind(err))
}

func TestGradleReadVersionMissingFile(t *testing.T) {
	editor := NewGradleEditor()
	_, err := editor.ReadVersion(context.Background(), t.TempDir())
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestGradleSetVersion(t *testing.T) {
	dir := writeGradleProps(t, "group=com.example\nversion=2.0.16-SNAPSHOT\n")
	editor := NewGradleEditor()
	ctx := context.Background()

	err := editor.SetVersion(ctx, dir,
		version.MustParseRelease("2.0.16-SNAPSHOT"), version.MustParseRelease("2.0.16"))
	require.NoError(t, err)

	data, readErr := os.ReadFile(filepath.Join(dir, "gradle.properties"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "version=2.0.16\n")
	assert.Contains(t, string(data), "group=com.example", "unrelated properties survive")
}

func TestGradleSetVersionKeepsTrailingNewline(t *testing.T) {
	dir := writeGradleProps(t, "group=com.example\nversion=2.0.16-SNAPSHOT\n")
	editor := NewGradleEditor()

	err := editor.SetVersion(context.Background(), dir,
		version.MustParseRelease("2.0.16-SNAPSHOT"), version.MustParseRelease("2.0.16"))
	require.NoError(t, err)

	data, readErr := os.ReadFile(filepath.Join(dir, "gradle.properties"))
	require.NoError(t, readErr)
	assert.Equal(t, "group=com.example\nversion=2.0.16\n", string(data))
}

func TestGradleSetVersionMismatch(t *testing.T) {
	dir := writeGradleProps(t, "version=2.0.15-SNAPSHOT\n")
	editor := NewGradleEditor()

	err := editor.SetVersion(context.Background(), dir,
		version.MustParseRelease("2.0.16-SNAPSHOT"), version.MustParseRelease("2.0.16"))
	require.Error(t, err)
	assert.Equal(t, errors.KindDescriptor, errors.GetKind(err))

	data, readErr := os.ReadFile(filepath.Join(dir, "gradle.properties"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "2.0.15-SNAPSHOT")
}
