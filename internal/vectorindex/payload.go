// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	qdrant "github.com/qdrant/go-client/qdrant"
)

func buildPayload(p Point) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"chunk_id":      strValue(p.ChunkID),
		"document_id":   strValue(p.DocumentID),
		"content":       strValue(p.Content),
		"chunk_index":   strValue(strconv.Itoa(p.ChunkIndex)),
		"quality_score": strValue(strconv.FormatFloat(p.QualityScore, 'f', -1, 64)),
		"method":        strValue(p.Method),
		"content_hash":  strValue(p.ContentHash),
		"user_id":       strValue(p.UserID),
	}
	if len(p.Metadata) > 0 {
		if raw, err := json.Marshal(p.Metadata); err == nil {
			payload["metadata"] = strValue(string(raw))
		}
	}
	if p.DocumentCategory != nil {
		payload["document_category"] = strValue(*p.DocumentCategory)
	}
	if len(p.DocumentTags) > 0 {
		if raw, err := json.Marshal(p.DocumentTags); err == nil {
			payload["document_tags"] = strValue(string(raw))
		}
	}
	if p.DocumentTitle != nil {
		payload["document_title"] = strValue(*p.DocumentTitle)
	}
	if p.DocumentAuthor != nil {
		payload["document_author"] = strValue(*p.DocumentAuthor)
	}
	if p.DocumentFilename != nil {
		payload["document_filename"] = strValue(*p.DocumentFilename)
	}
	return payload
}

func strValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int {
	v := payloadString(payload, key)
	n, _ := strconv.Atoi(v)
	return n
}

// PatchMetadata updates the document-derived payload fields across every
// point carrying docID, without touching the vector (no re-embedding).
func (g *Gateway) PatchMetadata(ctx context.Context, collection, docID string, patch MetadataPatch) error {
	payload := map[string]*qdrant.Value{}
	if patch.Title != nil {
		payload["document_title"] = strValue(*patch.Title)
	}
	if patch.Author != nil {
		payload["document_author"] = strValue(*patch.Author)
	}
	if patch.Category != nil {
		payload["document_category"] = strValue(*patch.Category)
	}
	if len(patch.Tags) > 0 {
		if raw, err := json.Marshal(patch.Tags); err == nil {
			payload["document_tags"] = strValue(string(raw))
		}
	}
	if len(payload) == 0 {
		return nil
	}

	filter := &qdrant.Filter{Must: []*qdrant.Condition{matchKeyword("document_id", docID)}}
	_, err := g.points.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: collection,
		Payload:        payload,
		PointsSelector: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("patch metadata for document %s in %s: %w", docID, collection, err)
	}
	return nil
}
