// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/northbound/triangle/internal/dbmanager"
)

// Repository is the typed gateway onto document_metadata, grounded on the
// teacher's EventLogger shape (handle + typed row + query methods) and
// generalized from SQLite's single-writer model to the pooled, RLS-aware
// dbmanager.Manager.
type Repository struct {
	db *dbmanager.Manager
}

// New constructs a Repository over db.
func New(db *dbmanager.Manager) *Repository {
	return &Repository{db: db}
}

func rls(userID *string, role string) *dbmanager.RLSContext {
	return &dbmanager.RLSContext{UserID: userID, Role: role}
}

// CreateWithFolder inserts doc, assigning it to folderID in the same
// statement so "create + assign to folder" is atomic, per spec §4.2.
// ON CONFLICT (id) DO NOTHING makes a retried submit idempotent.
func (r *Repository) CreateWithFolder(ctx context.Context, doc Document, folderID *string) (*Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	doc.FolderID = folderID

	qualityJSON, err := marshalQuality(doc.Quality)
	if err != nil {
		return nil, fmt.Errorf("marshal quality metrics: %w", err)
	}

	const sql = `
		INSERT INTO document_metadata (
			id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25, $26,
			$27, $28, $29, $30
		)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata`

	args := []any{
		doc.ID, doc.Filename, doc.FilePath, doc.Title, string(doc.DocType), doc.FileSize, doc.FileHash, string(doc.ProcessingStatus),
		doc.UploadedAt, qualityJSON, doc.PageCount, doc.ChunkCount, doc.EntityCount,
		doc.Category, doc.Tags, doc.Author, doc.Language, doc.PublishedAt,
		doc.FolderID, doc.UserID, doc.TeamID, string(doc.CollectionKind),
		doc.SubmissionStatus, doc.SubmittedBy, doc.SubmittedAt, doc.ReviewedBy, doc.ReviewedAt,
		doc.ParentDocumentID, doc.OriginalZipPath, doc.InheritMetadata,
	}

	row, err := r.db.FetchOne(ctx, sql, args, rls(doc.UserID, roleFor(doc.CollectionKind)))
	if err != nil {
		return nil, fmt.Errorf("create document %q: %w", doc.Filename, err)
	}
	if row == nil {
		// Conflict on id hit DO NOTHING; the row already exists, return it.
		return r.FindByID(ctx, doc.ID)
	}
	return documentFromRow(row)
}

// FindByFilenameAndContext performs the duplicate-detection lookup keyed on
// the scoping tuple. NULLs are matched with IS NOT DISTINCT FROM, not =, so
// a global document (user_id NULL) and root-level document (folder_id
// NULL) both match correctly, per spec §4.2.
func (r *Repository) FindByFilenameAndContext(ctx context.Context, filename string, userID *string, kind CollectionKind, folderID *string) (*Document, error) {
	const sql = `
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata
		WHERE filename = $1
		AND collection_kind = $2
		AND user_id IS NOT DISTINCT FROM $3
		AND folder_id IS NOT DISTINCT FROM $4`

	row, err := r.db.FetchOne(ctx, sql, []any{filename, string(kind), derefOrNil(userID), derefOrNil(folderID)}, rls(userID, roleFor(kind)))
	if err != nil {
		return nil, fmt.Errorf("find document %q by context: %w", filename, err)
	}
	if row == nil {
		return nil, nil
	}
	return documentFromRow(row)
}

// FindByID loads a document by its primary key, running under the admin
// role since the caller (background processing, reconciliation) may not
// be acting on behalf of any particular end user.
func (r *Repository) FindByID(ctx context.Context, id string) (*Document, error) {
	const sql = `
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata WHERE id = $1`

	row, err := r.db.FetchOne(ctx, sql, []any{id}, rls(nil, "admin"))
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	return documentFromRow(row)
}

// FindByHash is the indexed file_hash lookup used for content-hash dedup
// (invariant I3).
func (r *Repository) FindByHash(ctx context.Context, hash string) (*Document, error) {
	const sql = `
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata WHERE file_hash = $1`

	// Hash lookup is cross-scope by design (dedup must find a match
	// regardless of who uploaded the duplicate), so it runs under the
	// admin role rather than a specific user's RLS context.
	row, err := r.db.FetchOne(ctx, sql, []any{hash}, rls(nil, "admin"))
	if err != nil {
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return documentFromRow(row)
}

// GetDocumentsByFolder returns folder contents; folderID == nil selects
// root-level documents of the given scope.
func (r *Repository) GetDocumentsByFolder(ctx context.Context, folderID *string, userID *string, kind CollectionKind) ([]*Document, error) {
	const sql = `
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata
		WHERE folder_id IS NOT DISTINCT FROM $1
		AND user_id IS NOT DISTINCT FROM $2
		AND collection_kind = $3
		ORDER BY uploaded_at DESC`

	rows, err := r.db.FetchAll(ctx, sql, []any{derefOrNil(folderID), derefOrNil(userID), string(kind)}, rls(userID, roleFor(kind)))
	if err != nil {
		return nil, fmt.Errorf("get documents by folder: %w", err)
	}
	return documentsFromRows(rows)
}

// ListAllPaginated returns every document row across every scope, running
// under the admin role. Used by the startup reconciler's disk-existence
// pass (spec §4.6 step 4), which must see every user's documents
// regardless of who is running the reconciler.
func (r *Repository) ListAllPaginated(ctx context.Context, limit, offset int) ([]*Document, error) {
	const sql = `
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.FetchAll(ctx, sql, []any{limit, offset}, rls(nil, "admin"))
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return documentsFromRows(rows)
}

// FilterDocuments composes a dynamic WHERE from the open predicate set in
// Filter, restricting sort keys to allowedSortColumns.
func (r *Repository) FilterDocuments(ctx context.Context, f Filter) ([]*Document, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil || f.CollectionKind != nil {
		kind := CollectionUser
		if f.CollectionKind != nil {
			kind = *f.CollectionKind
		}
		where = append(where, fmt.Sprintf("collection_kind = %s", arg(string(kind))))
	}
	if f.UserID != nil {
		where = append(where, fmt.Sprintf("user_id IS NOT DISTINCT FROM %s", arg(*f.UserID)))
	}
	if f.FolderID != nil {
		where = append(where, fmt.Sprintf("folder_id IS NOT DISTINCT FROM %s", arg(*f.FolderID)))
	}
	if f.Query != nil && *f.Query != "" {
		like := "%" + *f.Query + "%"
		where = append(where, fmt.Sprintf(
			"(filename ILIKE %s OR title ILIKE %s OR author ILIKE %s)",
			arg(like), arg(like), arg(like)))
	}
	if f.Category != nil {
		where = append(where, fmt.Sprintf("category = %s", arg(*f.Category)))
	}
	if len(f.Tags) > 0 {
		where = append(where, fmt.Sprintf("tags @> %s", arg(f.Tags)))
	}
	if f.DocType != nil {
		where = append(where, fmt.Sprintf("doc_type = %s", arg(*f.DocType)))
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("processing_status = %s", arg(*f.Status)))
	}
	if f.UploadedAfter != nil {
		where = append(where, fmt.Sprintf("uploaded_at >= %s", arg(*f.UploadedAfter)))
	}
	if f.UploadedBefore != nil {
		where = append(where, fmt.Sprintf("uploaded_at <= %s", arg(*f.UploadedBefore)))
	}
	if f.PublishedAfter != nil {
		where = append(where, fmt.Sprintf("published_date >= %s", arg(*f.PublishedAfter)))
	}
	if f.PublishedBefore != nil {
		where = append(where, fmt.Sprintf("published_date <= %s", arg(*f.PublishedBefore)))
	}
	if f.MinQualityScore != nil {
		where = append(where, fmt.Sprintf("(quality_metrics->>'overall')::float8 >= %s", arg(*f.MinQualityScore)))
	}

	whereClause := "1=1"
	if len(where) > 0 {
		whereClause = strings.Join(where, " AND ")
	}

	sortCol, ok := allowedSortColumns[f.SortBy]
	if !ok {
		sortCol = allowedSortColumns["uploaded_at"]
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sql := fmt.Sprintf(`
		SELECT id, filename, file_path, title, doc_type, file_size, file_hash, processing_status,
			uploaded_at, quality_metrics, page_count, chunk_count, entity_count,
			category, tags, author, language, published_date,
			folder_id, user_id, team_id, collection_kind,
			submission_status, submitted_by, submitted_at, reviewed_by, reviewed_at,
			parent_document_id, original_zip_path, inherit_metadata
		FROM document_metadata
		WHERE %s
		ORDER BY %s %s
		LIMIT %d OFFSET %d`, whereClause, sortCol, dir, limit, f.Offset)

	rows, err := r.db.FetchAll(ctx, sql, args, rls(f.UserID, "member"))
	if err != nil {
		return nil, fmt.Errorf("filter documents: %w", err)
	}
	return documentsFromRows(rows)
}

// UpdateStatus advances processing_status, used by the upload pipeline and
// the reconciler.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status, userID *string) error {
	const sql = `UPDATE document_metadata SET processing_status = $1 WHERE id = $2`
	return r.db.Exec(ctx, sql, []any{string(status), id}, rls(userID, "member"))
}

// Delete removes a document row; callers are responsible for the
// corresponding file and vector-point deletions (invariant I1).
func (r *Repository) Delete(ctx context.Context, id string, userID *string) error {
	const sql = `DELETE FROM document_metadata WHERE id = $1`
	return r.db.Exec(ctx, sql, []any{id}, rls(userID, "member"))
}

// UpdateMetadata patches title/author/category/tags on a document row. A nil
// field is left unchanged.
func (r *Repository) UpdateMetadata(ctx context.Context, id string, userID *string, title, author, category *string, tags []string) error {
	const sql = `
		UPDATE document_metadata SET
			title    = COALESCE($1, title),
			author   = COALESCE($2, author),
			category = COALESCE($3, category),
			tags     = COALESCE($4, tags)
		WHERE id = $5`
	var tagsArg any
	if tags != nil {
		tagsArg = tags
	}
	return r.db.Exec(ctx, sql, []any{derefOrNil(title), derefOrNil(author), derefOrNil(category), tagsArg, id}, rls(userID, "member"))
}

func roleFor(kind CollectionKind) string {
	if kind == CollectionGlobal {
		return "admin"
	}
	return "member"
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func marshalQuality(q *QualityMetrics) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func documentsFromRows(rows []dbmanager.Row) ([]*Document, error) {
	out := make([]*Document, 0, len(rows))
	for _, row := range rows {
		doc, err := documentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func documentFromRow(row dbmanager.Row) (*Document, error) {
	if row == nil {
		return nil, nil
	}
	d := &Document{
		DocType:          DocType(stringField(row, "doc_type")),
		ProcessingStatus: Status(stringField(row, "processing_status")),
		CollectionKind:   CollectionKind(stringField(row, "collection_kind")),
	}
	if v, ok := row["id"].(string); ok {
		d.ID = v
	}
	if v, ok := row["filename"].(string); ok {
		d.Filename = v
	}
	if v, ok := row["file_path"].(string); ok {
		d.FilePath = v
	}
	if v, ok := row["title"].(string); ok {
		d.Title = v
	}
	if v, ok := row["file_size"].(int64); ok {
		d.FileSize = v
	}
	if v, ok := row["file_hash"].(string); ok {
		d.FileHash = v
	}
	if v, ok := row["uploaded_at"].(time.Time); ok {
		d.UploadedAt = v
	}
	if raw, ok := row["quality_metrics"].([]byte); ok && len(raw) > 0 {
		var q QualityMetrics
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal quality metrics for %s: %w", d.ID, err)
		}
		d.Quality = &q
	}
	if v, ok := row["page_count"].(int64); ok {
		d.PageCount = int(v)
	}
	if v, ok := row["chunk_count"].(int64); ok {
		d.ChunkCount = int(v)
	}
	if v, ok := row["entity_count"].(int64); ok {
		d.EntityCount = int(v)
	}
	if v, ok := row["category"].(string); ok {
		d.Category = &v
	}
	if v, ok := row["tags"].([]string); ok {
		d.Tags = v
	}
	if v, ok := row["author"].(string); ok {
		d.Author = &v
	}
	if v, ok := row["language"].(string); ok {
		d.Language = &v
	}
	if v, ok := row["published_date"].(time.Time); ok {
		d.PublishedAt = &v
	}
	if v, ok := row["folder_id"].(string); ok {
		d.FolderID = &v
	}
	if v, ok := row["user_id"].(string); ok {
		d.UserID = &v
	}
	if v, ok := row["team_id"].(string); ok {
		d.TeamID = &v
	}
	if v, ok := row["submission_status"].(string); ok {
		d.SubmissionStatus = &v
	}
	if v, ok := row["submitted_by"].(string); ok {
		d.SubmittedBy = &v
	}
	if v, ok := row["submitted_at"].(time.Time); ok {
		d.SubmittedAt = &v
	}
	if v, ok := row["reviewed_by"].(string); ok {
		d.ReviewedBy = &v
	}
	if v, ok := row["reviewed_at"].(time.Time); ok {
		d.ReviewedAt = &v
	}
	if v, ok := row["parent_document_id"].(string); ok {
		d.ParentDocumentID = &v
	}
	if v, ok := row["original_zip_path"].(string); ok {
		d.OriginalZipPath = &v
	}
	if v, ok := row["inherit_metadata"].(bool); ok {
		d.InheritMetadata = v
	}
	return d, nil
}

func stringField(row dbmanager.Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}
