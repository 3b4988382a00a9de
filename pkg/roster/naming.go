package roster

import (
	"fmt"
	"regexp"
)

const (
	// DefaultNamespace is used when no namespace is configured
	DefaultNamespace = "default"

	// MaxNamespaceLength bounds the namespace segment of keys and channels
	MaxNamespaceLength = 63
)

// NamespacePattern matches valid namespaces: lowercase alphanumeric, hyphens
// allowed but not at the start or end.
var NamespacePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateNamespace checks that a namespace is safe to embed in Redis keys.
func ValidateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}

	if len(name) > MaxNamespaceLength {
		return fmt.Errorf("namespace too long: %d characters (max: %d)", len(name), MaxNamespaceLength)
	}

	if !NamespacePattern.MatchString(name) {
		return fmt.Errorf("invalid namespace '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
