package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateRepoName validates a repository directory name for safety.
// The name is usually derived from a user-supplied URL and later joined
// onto the target user's home directory, so it must be a plain basename.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No hidden names (starting with .)
//   - Maximum length of 256 characters
func ValidateRepoName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "repository name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPath, "repository name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "repository name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "repository name cannot contain path separators")
	}

	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "repository name cannot be a hidden or relative name")
	}

	return nil
}

// usernameRegex matches POSIX portable usernames as accepted by useradd.
var usernameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*\$?$`)

// ValidateUsername validates a system account name.
// Rules follow the POSIX portable character set with the common
// 32 character limit enforced by shadow-utils.
func ValidateUsername(name string) error {
	if name == "" {
		return New(ErrCodeInvalidUser, "username cannot be empty")
	}

	if len(name) > 32 {
		return New(ErrCodeInvalidUser, "username too long (max 32 characters)")
	}

	if !usernameRegex.MatchString(name) {
		return New(ErrCodeInvalidUser, "invalid username: %q", name)
	}

	return nil
}

// aptPackageNameRegex matches valid Debian package names (policy 5.6.1).
var aptPackageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// ValidateAptPackageName validates a Debian package name before it is
// handed to apt-get. Names are always lowercase, at least two characters,
// and limited to alphanumerics plus "+", "-" and ".".
func ValidateAptPackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}

	if !aptPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid package name: %q", name)
	}

	return nil
}

// ValidatePath validates a filesystem path used as a provisioning target.
// It prevents traversal out of the intended directory and rejects
// characters that cannot appear in a sane path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
