// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// log is the package-level sink for ParseFile's extraction telemetry.
// Defaults to a no-op logger; SetLogger wires it to the process's real
// zerolog instance at startup.
var log = zerolog.Nop()

// SetLogger points the parser package's telemetry at l.
func SetLogger(l zerolog.Logger) {
	log = l
}

// ParseFile routes a file to the appropriate parser based on its
// extension and returns the extracted text alongside the file's
// DeclaredType, so a caller that only calls ParseFile (the org fast path,
// the filesystem watcher's re-parse) doesn't need a second classification
// pass over the same filename.
func ParseFile(filePath string) (string, DeclaredType, error) {
	declared := ClassifyExtension(filePath)
	ext := strings.ToLower(filepath.Ext(filePath))

	var text string
	var err error

	switch ext {
	case ".pdf":
		text, err = parsePDF(filePath)
	case ".docx":
		text, err = parseDOCX(filePath)
	case ".txt", ".md", ".org":
		text, err = parseText(filePath)
	case ".xlsx", ".xls":
		text, err = parseExcel(filePath)
	case ".html", ".htm":
		text, err = parseHTML(filePath)
	case ".eml":
		text, err = parseEmail(filePath)
	default:
		return "", declared, fmt.Errorf("unsupported file type: %s", ext)
	}

	if err != nil {
		return "", declared, err
	}

	log.Debug().Str("file", filePath).Int("chars", len(text)).Str("declared_type", string(declared)).Msg("text extracted")

	return text, declared, nil
}

// IsSupportedFile checks if a file extension is supported
func IsSupportedFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	supported := []string{".pdf", ".docx", ".txt", ".md", ".org", ".xlsx", ".xls", ".html", ".htm", ".eml"}
	for _, s := range supported {
		if ext == s {
			return true
		}
	}
	return false
}

// IsTemporaryFile checks if a file is a temporary file (e.g., ~$doc.docx)
func IsTemporaryFile(filePath string) bool {
	base := filepath.Base(filePath)
	// Check for common temporary file patterns
	if strings.HasPrefix(base, "~$") {
		return true
	}
	if strings.HasPrefix(base, "._") {
		return true
	}
	if strings.HasSuffix(base, ".tmp") {
		return true
	}
	return false
}
