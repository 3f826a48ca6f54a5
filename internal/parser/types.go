// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package parser

import (
	"path/filepath"
	"strings"
)

// DeclaredType enumerates the document types the ingestion pipeline
// recognizes (spec §3.1). ParseFile and ClassifyExtension share this type
// so a caller that only has a filename, and one that has already extracted
// text, agree on the same classification.
type DeclaredType string

const (
	TypePDF     DeclaredType = "pdf"
	TypeMD      DeclaredType = "md"
	TypeOrg     DeclaredType = "org"
	TypeTXT     DeclaredType = "txt"
	TypeDOCX    DeclaredType = "docx"
	TypeHTML    DeclaredType = "html"
	TypeEPUB    DeclaredType = "epub"
	TypeEML     DeclaredType = "eml"
	TypeImage   DeclaredType = "image"
	TypeAudio   DeclaredType = "audio"
	TypeURL     DeclaredType = "url"
	TypeZIP     DeclaredType = "zip"
	TypeSRT     DeclaredType = "srt"
	TypeVideo   DeclaredType = "video"
	TypeUnknown DeclaredType = "unknown"
)

// extensionTypes maps a lower-cased file extension to its declared type,
// per spec §3.1's enumerated doc_type table.
var extensionTypes = map[string]DeclaredType{
	".pdf":  TypePDF,
	".md":   TypeMD,
	".org":  TypeOrg,
	".txt":  TypeTXT,
	".docx": TypeDOCX,
	".html": TypeHTML,
	".htm":  TypeHTML,
	".epub": TypeEPUB,
	".eml":  TypeEML,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".png":  TypeImage,
	".gif":  TypeImage,
	".mp3":  TypeAudio,
	".wav":  TypeAudio,
	".m4a":  TypeAudio,
	".zip":  TypeZIP,
	".srt":  TypeSRT,
	".mp4":  TypeVideo,
	".mov":  TypeVideo,
	".mkv":  TypeVideo,
}

// ClassifyExtension maps filename's extension to a DeclaredType, returning
// TypeUnknown when the extension isn't recognized. internal/documents uses
// this when a caller doesn't supply an explicit declared type (spec §4.5
// step 5).
func ClassifyExtension(filename string) DeclaredType {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return TypeUnknown
}
