// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package documents implements the typed repository over document_metadata
// and the upload pipeline that turns a raw file or URL into chunks and
// vector-store points.
package documents

import (
	"time"

	"github.com/northbound/triangle/internal/parser"
)

// DocType is an alias of parser.DeclaredType: the parser package owns the
// canonical declared-type enum (it classifies filenames and parses them in
// the same call), and documents re-exports it under its historical names
// so callers across the tree don't need to import internal/parser just for
// a constant.
type DocType = parser.DeclaredType

const (
	DocPDF     = parser.TypePDF
	DocMD      = parser.TypeMD
	DocOrg     = parser.TypeOrg
	DocTXT     = parser.TypeTXT
	DocDOCX    = parser.TypeDOCX
	DocHTML    = parser.TypeHTML
	DocEPUB    = parser.TypeEPUB
	DocEML     = parser.TypeEML
	DocImage   = parser.TypeImage
	DocAudio   = parser.TypeAudio
	DocURL     = parser.TypeURL
	DocZIP     = parser.TypeZIP
	DocSRT     = parser.TypeSRT
	DocVideo   = parser.TypeVideo
	DocUnknown = parser.TypeUnknown
)

// Status is the document processing status enum.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusEmbedding  Status = "embedding"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// CollectionKind mirrors folders.ScopeKind; duplicated here (rather than
// imported) because document_metadata and document_folders are scoped
// independently and the repository must not take a compile-time dependency
// on the folders package's internal representation.
type CollectionKind string

const (
	CollectionUser   CollectionKind = "user"
	CollectionGlobal CollectionKind = "global"
	CollectionTeam   CollectionKind = "team"
)

// QualityMetrics is the optional JSON blob carrying an overall quality
// score plus whatever sub-scores the classifier produced.
type QualityMetrics struct {
	Overall float64        `json:"overall"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Document is a row of document_metadata.
type Document struct {
	ID               string
	Filename         string
	FilePath         string
	Title            string
	DocType          DocType
	FileSize         int64
	FileHash         string
	ProcessingStatus Status
	UploadedAt       time.Time

	Quality *QualityMetrics

	PageCount   int
	ChunkCount  int
	EntityCount int

	Category *string
	Tags     []string

	Author      *string
	Language    *string
	PublishedAt *time.Time

	FolderID       *string
	UserID         *string
	TeamID         *string
	CollectionKind CollectionKind

	SubmissionStatus *string
	SubmittedBy      *string
	SubmittedAt      *time.Time
	ReviewedBy       *string
	ReviewedAt       *time.Time

	ParentDocumentID  *string
	OriginalZipPath   *string
	InheritMetadata   bool
}

// Filter is the open predicate set accepted by FilterDocuments (spec §4.2).
type Filter struct {
	UserID         *string
	CollectionKind *CollectionKind
	FolderID       *string

	Query    *string // free-text ILIKE over filename/title/author (description is not searched)
	Category *string
	Tags     []string // array-contains: document must have all of these
	DocType  *string
	Status   *string

	UploadedAfter  *time.Time
	UploadedBefore *time.Time
	PublishedAfter  *time.Time
	PublishedBefore *time.Time

	MinQualityScore *float64

	SortBy  string // restricted to allowedSortColumns
	SortDesc bool
	Limit   int
	Offset  int
}

var allowedSortColumns = map[string]string{
	"uploaded_at":    "uploaded_at",
	"filename":       "filename",
	"title":          "title",
	"quality_score":  "(quality_metrics->>'overall')::float8",
	"published_date": "published_date",
}
