package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)
	scanIDPattern   = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("invalid username format (letters, digits, dot, dash, underscore; 3-64 chars)")
	}
	return nil
}

// ValidateScanID checks the scan id is a plain UUID
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if !scanIDPattern.MatchString(strings.ToLower(scanID)) {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateArchiveFilename checks the uploaded filename: a bare .zip
// name with no path components
func ValidateArchiveFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return fmt.Errorf("filename must not contain path components")
	}
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		return fmt.Errorf("only .zip archives are accepted")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates a listing limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 50 // default
	}
	if limit > 200 {
		return 200 // max limit
	}
	return limit
}

// ValidatePageSize validates a pagination page size
func ValidatePageSize(size int) int {
	if size <= 0 {
		return 20 // default
	}
	if size > 100 {
		return 100 // max page size
	}
	return size
}
