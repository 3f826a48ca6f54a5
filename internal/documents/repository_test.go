// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbound/triangle/internal/dbmanager"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TRIANGLE_TEST_DSN")
	if dsn == "" {
		t.Skip("TRIANGLE_TEST_DSN not set, skipping database-backed test")
	}
	m, err := dbmanager.New(context.Background(), dbmanager.Config{DSN: dsn, Mode: dbmanager.ModePooled})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return New(m)
}

func TestCreateWithFolder_IdempotentOnID(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	uid := "55555555-5555-5555-5555-555555555555"

	doc := Document{
		ID:             "66666666-6666-6666-6666-666666666666",
		Filename:       "report.pdf",
		DocType:        DocPDF,
		FileHash:       "deadbeefcafef00d",
		UserID:         &uid,
		CollectionKind: CollectionUser,
	}

	first, err := r.CreateWithFolder(ctx, doc, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.CreateWithFolder(ctx, doc, nil)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindByFilenameAndContext_NullSafe(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	doc := Document{
		Filename:       "handbook.md",
		DocType:        DocMD,
		FileHash:       "abc123",
		CollectionKind: CollectionGlobal,
	}
	_, err := r.CreateWithFolder(ctx, doc, nil)
	require.NoError(t, err)

	found, err := r.FindByFilenameAndContext(ctx, "handbook.md", nil, CollectionGlobal, nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "handbook.md", found.Filename)
}

func TestFilterDocuments_RejectsUnknownSortColumn(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	uid := "66666666-6666-6666-6666-666666666666"

	_, err := r.FilterDocuments(ctx, Filter{UserID: &uid, SortBy: "'; DROP TABLE document_metadata; --"})
	require.NoError(t, err) // falls back to uploaded_at rather than erroring
}
