// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/folders"
)

func TestParsePath_UserScopeWithFolders(t *testing.T) {
	pc, ok := ParsePath("Users/alice/Reports/2026/q1.pdf")
	assert.True(t, ok)
	assert.Equal(t, folders.ScopeUser, pc.Scope.Kind)
	assert.Equal(t, "alice", *pc.UserID)
	assert.Equal(t, documents.CollectionUser, pc.Kind)
	assert.Equal(t, []string{"Reports", "2026"}, pc.FolderPath)
	assert.Equal(t, "q1.pdf", pc.Filename)
}

func TestParsePath_GlobalScopeRoot(t *testing.T) {
	pc, ok := ParsePath("Global/manual.pdf")
	assert.True(t, ok)
	assert.Equal(t, folders.ScopeGlobal, pc.Scope.Kind)
	assert.Equal(t, documents.CollectionGlobal, pc.Kind)
	assert.Empty(t, pc.FolderPath)
	assert.Equal(t, "manual.pdf", pc.Filename)
}

func TestParsePath_TeamScopeRequiresDocumentsSegment(t *testing.T) {
	pc, ok := ParsePath("Teams/eng/documents/notes.md")
	assert.True(t, ok)
	assert.Equal(t, folders.ScopeTeam, pc.Scope.Kind)
	assert.Equal(t, "eng", *pc.TeamID)
	assert.Equal(t, "notes.md", pc.Filename)

	_, ok = ParsePath("Teams/eng/notes.md")
	assert.False(t, ok)
}

func TestParsePath_UnrecognizedRootIgnored(t *testing.T) {
	_, ok := ParsePath("logs/app.log")
	assert.False(t, ok)
}

func TestParseFolderPath_MatchesParsePathFolderComponent(t *testing.T) {
	pc, _ := ParsePath("Users/alice/Reports/2026/q1.pdf")
	scope, components, ok := ParseFolderPath("Users/alice/Reports/2026")
	assert.True(t, ok)
	assert.Equal(t, pc.Scope.Kind, scope.Kind)
	assert.Equal(t, pc.FolderPath, components)
}
