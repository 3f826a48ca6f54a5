// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/events"
	"github.com/northbound/triangle/internal/folders"
	"github.com/northbound/triangle/internal/parser"
)

// excludedDirs are operational directories never walked or watched, per
// spec §4.6.
var excludedDirs = map[string]bool{
	"logs": true, "processed": true, "node_modules": true,
	".git": true, ".cursor": true,
}

// Manager watches a single root directory tree recursively, debounces
// create/modify events, and reconciles filesystem state with the document
// and folder repositories. Adapted from
// internal/drone/watcher/manager.go's fsnotify-recursive-watch +
// goroutine-per-root + debounce-trigger shape; the gRPC drone-ingestion
// call is replaced with direct calls into internal/documents and
// internal/folders.
type Manager struct {
	root     string
	docs     *documents.Service
	folders  *folders.Engine
	events   *events.Broadcaster
	log      zerolog.Logger

	watcher   *fsnotify.Watcher
	debouncer *Debouncer

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager constructs a Manager rooted at root.
func NewManager(root string, docs *documents.Service, folderEngine *folders.Engine, broadcaster *events.Broadcaster, log zerolog.Logger) *Manager {
	return &Manager{
		root:    root,
		docs:    docs,
		folders: folderEngine,
		events:  broadcaster,
		log:     log,
	}
}

// Start runs the startup reconciliation to completion, then begins the
// live fsnotify watch. Per spec §4.6, reconciliation MUST finish before
// the live observer is enabled.
func (m *Manager) Start(ctx context.Context) error {
	if err := RunReconciliation(ctx, m.root, m.docs, m.folders, m.log); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.debouncer = NewDebouncer(2*time.Second, m.onDebounced)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = w

	if err := m.addTreeRecursive(m.root); err != nil {
		w.Close()
		return err
	}

	m.wg.Add(1)
	go m.processEvents()

	return nil
}

// Stop halts the watcher and waits for the event loop to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	watcher := m.watcher
	debouncer := m.debouncer
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if debouncer != nil {
		debouncer.Stop()
	}
	if watcher != nil {
		watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) addTreeRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if isExcludedDir(path) {
				return filepath.SkipDir
			}
			if err := m.watcher.Add(path); err != nil {
				m.log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			}
		}
		return nil
	})
}

func isExcludedDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if excludedDirs[part] {
			return true
		}
	}
	return false
}

// processEvents drains fsnotify events. It never blocks on long-running
// work: created/modified paths are handed to the debouncer, deletes and
// renames are dispatched to their own goroutines immediately, per spec
// §4.6's "never block the watcher thread" parallel-safety rule.
func (m *Manager) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.dispatch(ev)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (m *Manager) dispatch(ev fsnotify.Event) {
	if isExcludedDir(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			m.handleFolderCreated(ev.Name)
			_ = m.watcher.Add(ev.Name)
			return
		}
		if parser.IsTemporaryFile(ev.Name) || !parser.IsSupportedFile(ev.Name) {
			return
		}
		m.debouncer.Trigger(ev.Name)

	case ev.Op&fsnotify.Write == fsnotify.Write:
		if parser.IsTemporaryFile(ev.Name) || !parser.IsSupportedFile(ev.Name) {
			return
		}
		m.debouncer.Trigger(ev.Name)

	case ev.Op&fsnotify.Remove == fsnotify.Remove, ev.Op&fsnotify.Rename == fsnotify.Rename:
		m.debouncer.Cancel(ev.Name)
		go m.handleRemoved(ev.Name)
	}
}

// onDebounced is the debouncer callback: the debouncer itself promotes and
// dispatches matured paths in parallel, so this runs already isolated from
// other files' processing and only needs to report its own failure.
func (m *Manager) onDebounced(path string) {
	if err := m.handleCreatedOrModified(context.Background(), path); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to process file event")
	}
}

func (m *Manager) handleCreatedOrModified(ctx context.Context, path string) error {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return err
	}
	pc, ok := ParsePath(rel)
	if !ok {
		return nil
	}

	folderID, err := m.folders.ResolvePath(ctx, pc.Scope, pc.FolderPath)
	if err != nil {
		return err
	}

	existing, err := m.docs.Repo().FindByFilenameAndContext(ctx, pc.Filename, pc.UserID, pc.Kind, folderID)
	if err != nil {
		return err
	}
	if existing != nil {
		return m.docs.Reprocess(ctx, existing.ID, path)
	}

	_, err = m.docs.IngestDiscovered(ctx, documents.DiscoverInput{
		Path:           path,
		Filename:       pc.Filename,
		UserID:         pc.UserID,
		TeamID:         pc.TeamID,
		CollectionKind: pc.Kind,
		FolderPath:     pc.FolderPath,
	})
	if err == nil {
		m.events.FileCreated(path)
	}
	return err
}

// handleRemoved fires on fsnotify Remove/Rename. The removed path no
// longer exists on disk, so its kind (file vs. folder) can't be stat'd;
// it is tried first as a document (the common case), then as a folder.
func (m *Manager) handleRemoved(path string) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return
	}
	ctx := context.Background()

	if pc, ok := ParsePath(rel); ok {
		folderID, err := m.folders.ResolvePath(ctx, pc.Scope, pc.FolderPath)
		if err == nil {
			if doc, err := m.docs.Repo().FindByFilenameAndContext(ctx, pc.Filename, pc.UserID, pc.Kind, folderID); err == nil && doc != nil {
				if err := m.docs.Delete(ctx, doc.ID, pc.UserID); err != nil {
					m.log.Error().Err(err).Str("path", path).Msg("failed to delete document for removed file")
				}
				return
			}
		}
	}

	scope, components, ok := ParseFolderPath(rel)
	if !ok || len(components) == 0 {
		return
	}
	folderID, err := m.folders.ResolvePath(ctx, scope, components)
	if err != nil {
		return
	}
	if folderID == nil {
		m.events.FolderTreeRefresh()
		return
	}
	if err := m.folders.Delete(ctx, scope, *folderID); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to delete folder")
		return
	}
	m.events.FolderEvent(path, events.FolderDeleted)
}

func (m *Manager) handleFolderCreated(path string) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return
	}
	scope, components, ok := ParseFolderPath(rel)
	if !ok {
		return
	}
	ctx := context.Background()
	if _, err := m.folders.ResolveOrCreatePath(ctx, scope, components); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to create folder chain")
		return
	}
	m.events.FolderEvent(path, events.FolderCreated)
}
