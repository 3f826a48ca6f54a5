// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package events fans out the out-of-band UI notifications described in
// spec §6.6 over WebSocket, generalized from the teacher's SSE-flavored
// event.Broadcaster into a typed catalogue. Delivery is advisory: a dropped
// subscriber never blocks ingestion.
package events

import (
	"sync"
	"time"
)

// Kind enumerates the notification catalogue.
type Kind string

const (
	KindDocumentStatusUpdate Kind = "document_status_update"
	KindFileCreated          Kind = "file_created"
	KindFileDeleted          Kind = "file_deleted"
	KindFolderEvent          Kind = "folder_event"
	KindFolderTreeRefresh    Kind = "folder_tree_refresh"
)

// FolderAction distinguishes the three folder_event sub-cases.
type FolderAction string

const (
	FolderCreated FolderAction = "created"
	FolderDeleted FolderAction = "deleted"
	FolderMoved   FolderAction = "moved"
)

// Event is the envelope broadcast to every subscriber.
type Event struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	DocumentID string `json:"document_id,omitempty"`
	Status     string `json:"status,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Path       string `json:"path,omitempty"`

	FolderAction FolderAction `json:"folder_action,omitempty"`
}

// Broadcaster fans events out to subscriber channels, generalized from the
// teacher's events.Broadcaster to the typed Event above.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]bool
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan Event]bool)}
}

// Subscribe registers ch to receive future events.
func (b *Broadcaster) Subscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = true
}

// Unsubscribe removes and closes ch.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[ch] {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Broadcast delivers evt to every subscriber without blocking; a full
// subscriber channel is skipped, not waited on.
func (b *Broadcaster) Broadcast(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// DocumentStatusUpdate is a convenience constructor for the most common
// event kind.
func (b *Broadcaster) DocumentStatusUpdate(docID, status, folderID, userID, filename string) {
	b.Broadcast(Event{
		Kind:       KindDocumentStatusUpdate,
		DocumentID: docID,
		Status:     status,
		FolderID:   folderID,
		UserID:     userID,
		Filename:   filename,
	})
}

func (b *Broadcaster) FileCreated(path string)  { b.Broadcast(Event{Kind: KindFileCreated, Path: path}) }
func (b *Broadcaster) FileDeleted(path string)  { b.Broadcast(Event{Kind: KindFileDeleted, Path: path}) }

func (b *Broadcaster) FolderEvent(folderID string, action FolderAction) {
	b.Broadcast(Event{Kind: KindFolderEvent, FolderID: folderID, FolderAction: action})
}

func (b *Broadcaster) FolderTreeRefresh() {
	b.Broadcast(Event{Kind: KindFolderTreeRefresh})
}
