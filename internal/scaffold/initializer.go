package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a default sithlist.yml to path.
// If force is true, an existing file at path is replaced.
func Initialize(path string, force bool) error {
	if force {
		if err := handleForce(path); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	return validateCreatedFiles(path)
}

// handleForce removes an existing config file
func handleForce(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	printer.Warning("Removing existing %s...\n", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func getTemplateFiles(path string) ([]FileInfo, error) {
	content, err := templatesFS.ReadFile("templates/sithlist.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read sithlist.yml template: %w", err)
	}
	return []FileInfo{{Path: path, Content: content, Permissions: 0644}}, nil
}

func writeFiles(files []FileInfo) error {
	for _, file := range files {
		// O_EXCL keeps a concurrently created file intact
		f, err := os.OpenFile(file.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, file.Permissions)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		if _, err := f.Write(file.Content); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written file through the regular config loader
func validateCreatedFiles(path string) error {
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("created %s does not load: %w", path, err)
	}
	return nil
}

// PrintSuccess prints the created file and next steps
func PrintSuccess(path string) {
	printer.Success("\nInitialized sithlist configuration\n")
	printer.Info("\nCreated:\n")
	printer.Info("  ✓ %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Point api_url and push_url at your records API and planet monitor\n")
	printer.Info("  2. Optionally set cache.redis_url to cache records in Redis\n")
	printer.Info("  3. Run 'sithlist run' to open the list\n")
}
