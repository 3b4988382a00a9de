package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturePrinter(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	prevOut, prevErr, prevNoColor := printer.Stdout, printer.Stderr, color.NoColor
	printer.Stdout, printer.Stderr, color.NoColor = &stdout, &stderr, true
	t.Cleanup(func() { printer.Stdout, printer.Stderr, color.NoColor = prevOut, prevErr, prevNoColor })
	return &stdout, &stderr
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		setup   func(t *testing.T, path string)
		wantErr bool
	}{
		{
			name:  "fresh initialization",
			setup: func(t *testing.T, path string) {},
		},
		{
			name:  "force replaces existing file",
			force: true,
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("api_url: ftp://nowhere\n"), 0644))
			},
		},
		{
			name: "existing file without force",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capturePrinter(t)
			path := filepath.Join(t.TempDir(), "sithlist.yml")
			tt.setup(t, path)

			err := Initialize(path, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				content, readErr := os.ReadFile(path)
				require.NoError(t, readErr)
				assert.Equal(t, "old content", string(content))
				return
			}
			require.NoError(t, err)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

			// The template loads to exactly the built-in defaults
			loaded, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, config.Default(), loaded)
		})
	}
}

func TestInitialize_CreatesParentDirectory(t *testing.T) {
	capturePrinter(t)
	path := filepath.Join(t.TempDir(), "etc", "sithlist", "sithlist.yml")

	require.NoError(t, Initialize(path, false))
	assert.FileExists(t, path)
}

func TestHandleForce(t *testing.T) {
	_, stderr := capturePrinter(t)
	path := filepath.Join(t.TempDir(), "sithlist.yml")

	// Nothing to remove
	require.NoError(t, handleForce(path))
	assert.Empty(t, stderr.String())

	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
	require.NoError(t, handleForce(path))
	assert.NoFileExists(t, path)
	assert.Contains(t, stderr.String(), "Removing existing")
}

func TestGetTemplateFiles(t *testing.T) {
	files, err := getTemplateFiles("sithlist.yml")
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, "sithlist.yml", files[0].Path)
	assert.Equal(t, os.FileMode(0644), files[0].Permissions)
	assert.Contains(t, string(files[0].Content), "api_url:")
	assert.Contains(t, string(files[0].Content), "push_url:")
}

func TestValidateCreatedFiles_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sithlist.yml")
	require.NoError(t, os.WriteFile(path, []byte("initial_id: -4\n"), 0644))

	err := validateCreatedFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not load")
}

func TestPrintSuccess(t *testing.T) {
	stdout, _ := capturePrinter(t)
	PrintSuccess("sithlist.yml")

	out := stdout.String()
	assert.Contains(t, out, "Initialized sithlist configuration")
	assert.Contains(t, out, "✓ sithlist.yml")
	assert.Contains(t, out, "sithlist run")
}
