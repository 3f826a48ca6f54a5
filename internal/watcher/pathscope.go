// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"path/filepath"
	"strings"

	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/folders"
)

// PathContext is the (scope, user?, team?, folder components, filename)
// decomposition of a path under the watched root. It MUST agree exactly
// with internal/documents.scopeRelativeDir/scopeFor — both sides encode
// the same Users/<u>/..., Global/..., Teams/<t>/documents/... layout from
// spec §6.1.
type PathContext struct {
	Scope       folders.Scope
	Kind        documents.CollectionKind
	UserID      *string
	TeamID      *string
	FolderPath  []string
	Filename    string
}

// ParsePath decomposes relPath (relative to the watched root) into a scope
// and folder-component chain. Returns ok=false when the path does not
// match any recognized top-level scope directory (Users/Global/Teams) and
// should be ignored.
func ParsePath(relPath string) (PathContext, bool) {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")
	parts = nonEmpty(parts)
	if len(parts) == 0 {
		return PathContext{}, false
	}

	switch parts[0] {
	case "Users":
		if len(parts) < 2 {
			return PathContext{}, false
		}
		uid := parts[1]
		rest := parts[2:]
		if len(rest) == 0 {
			return PathContext{}, false
		}
		filename := rest[len(rest)-1]
		return PathContext{
			Scope:      folders.Scope{Kind: folders.ScopeUser, UserID: &uid},
			Kind:       documents.CollectionUser,
			UserID:     &uid,
			FolderPath: rest[:len(rest)-1],
			Filename:   filename,
		}, true

	case "Global":
		rest := parts[1:]
		if len(rest) == 0 {
			return PathContext{}, false
		}
		filename := rest[len(rest)-1]
		return PathContext{
			Scope:      folders.Scope{Kind: folders.ScopeGlobal},
			Kind:       documents.CollectionGlobal,
			FolderPath: rest[:len(rest)-1],
			Filename:   filename,
		}, true

	case "Teams":
		// Teams/<t>/documents/...
		if len(parts) < 3 || parts[2] != "documents" {
			return PathContext{}, false
		}
		tid := parts[1]
		rest := parts[3:]
		if len(rest) == 0 {
			return PathContext{}, false
		}
		filename := rest[len(rest)-1]
		return PathContext{
			Scope:      folders.Scope{Kind: folders.ScopeTeam, TeamID: &tid},
			Kind:       documents.CollectionTeam,
			TeamID:     &tid,
			FolderPath: rest[:len(rest)-1],
			Filename:   filename,
		}, true

	default:
		return PathContext{}, false
	}
}

// ParseFolderPath decomposes a directory path (relative to the watched
// root) into a scope and the full chain of folder-name components — unlike
// ParsePath, every component is a folder, there is no trailing filename.
func ParseFolderPath(relPath string) (folders.Scope, []string, bool) {
	relPath = filepath.ToSlash(relPath)
	parts := nonEmpty(strings.Split(relPath, "/"))
	if len(parts) == 0 {
		return folders.Scope{}, nil, false
	}

	switch parts[0] {
	case "Users":
		if len(parts) < 2 {
			return folders.Scope{}, nil, false
		}
		uid := parts[1]
		return folders.Scope{Kind: folders.ScopeUser, UserID: &uid}, parts[2:], true
	case "Global":
		return folders.Scope{Kind: folders.ScopeGlobal}, parts[1:], true
	case "Teams":
		if len(parts) < 3 || parts[2] != "documents" {
			return folders.Scope{}, nil, false
		}
		tid := parts[1]
		return folders.Scope{Kind: folders.ScopeTeam, TeamID: &tid}, parts[3:], true
	default:
		return folders.Scope{}, nil, false
	}
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
