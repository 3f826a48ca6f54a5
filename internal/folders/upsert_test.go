// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package folders

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbound/triangle/internal/dbmanager"
)

func newTestEngine(t *testing.T) *Engine {
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

// TestConflictTarget_CoversAllSixCombinations pins the six partial-unique
// index targets from spec §4.4 so a future edit cannot silently drop one.
func TestConflictTarget_CoversAllSixCombinations(t *testing.T) {
	cases := []struct {
		isRoot bool
		kind   ScopeKind
		want   string
	}{
		{true, ScopeTeam, `(team_id, name, collection_kind) WHERE parent_folder_id IS NULL AND team_id IS NOT NULL`},
		{true, ScopeUser, `(user_id, name, collection_kind) WHERE parent_folder_id IS NULL AND user_id IS NOT NULL`},
		{true, ScopeGlobal, `(name, collection_kind) WHERE parent_folder_id IS NULL AND user_id IS NULL`},
		{false, ScopeTeam, `(team_id, name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND team_id IS NOT NULL`},
		{false, ScopeUser, `(user_id, name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND user_id IS NOT NULL`},
		{false, ScopeGlobal, `(name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND user_id IS NULL`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, conflictTarget(c.isRoot, c.kind))
	}
}

// TestConcurrentCreateOrGet_Converges exercises property 4 from spec §8 on
// a single-level path: n concurrent create-or-get calls for the same root
// folder yield the same folder id.
func TestConcurrentCreateOrGet_Converges(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	uid := "22222222-2222-2222-2222-222222222222"
	scope := Scope{Kind: ScopeUser, UserID: &uid}

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			folder, err := e.CreateOrGetFolder(ctx, CreateOrGetInput{
				Name:  "Contracts",
				Scope: scope,
			})
			require.NoError(t, err)
			ids[i] = folder.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

// TestResolvePath_MatchesCreateOrGetPath is property 3 from spec §8: the
// folder id a watcher resolves for a dropped file's directory must equal
// the id CreateOrGetFolder returns for that same path.
func TestResolvePath_MatchesCreateOrGetPath(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	uid := "33333333-3333-3333-3333-333333333333"
	scope := Scope{Kind: ScopeUser, UserID: &uid}

	created, err := e.ResolveOrCreatePath(ctx, scope, []string{"Invoices", "2026", "Q1"})
	require.NoError(t, err)
	require.NotNil(t, created)

	resolved, err := e.ResolvePath(ctx, scope, []string{"Invoices", "2026", "Q1"})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, *created, *resolved)
}

func TestResolvePath_NotFoundReturnsNilNil(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	uid := "44444444-4444-4444-4444-444444444444"
	scope := Scope{Kind: ScopeUser, UserID: &uid}

	resolved, err := e.ResolvePath(ctx, scope, []string{"DoesNotExist"})
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
