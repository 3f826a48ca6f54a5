// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// Gateway wraps the raw Qdrant gRPC service clients, generalized from the
// teacher's single-collection QdrantVectorDB into per-user/global/tools
// collection routing.
type Gateway struct {
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient

	globalCollection string
	toolsCollection  string
	dimension        int

	log zerolog.Logger
}

// New constructs a Gateway over an existing gRPC connection and ensures the
// global and tools collections exist.
func New(conn *grpc.ClientConn, globalCollection, toolsCollection string, dimension int, log zerolog.Logger) (*Gateway, error) {
	if conn == nil {
		return nil, errors.New("vectorindex: gRPC connection is required")
	}
	if globalCollection == "" {
		globalCollection = "global_documents"
	}
	if toolsCollection == "" {
		toolsCollection = "tools"
	}
	if dimension <= 0 {
		dimension = 1536
	}

	g := &Gateway{
		collections:      qdrant.NewCollectionsClient(conn),
		points:           qdrant.NewPointsClient(conn),
		globalCollection: globalCollection,
		toolsCollection:  toolsCollection,
		dimension:        dimension,
		log:              log,
	}

	ctx := context.Background()
	if err := g.ensureCollection(ctx, g.globalCollection, dimension); err != nil {
		return nil, fmt.Errorf("ensure global collection: %w", err)
	}
	if err := g.ensureCollection(ctx, g.toolsCollection, dimension); err != nil {
		return nil, fmt.Errorf("ensure tools collection: %w", err)
	}
	return g, nil
}

// UserCollection returns the per-user collection name for uid, lazily
// created on first use.
func (g *Gateway) UserCollection(ctx context.Context, uid string) (string, error) {
	name := fmt.Sprintf("user_%s_documents", sanitizeCollectionComponent(uid))
	if err := g.ensureCollection(ctx, name, g.dimension); err != nil {
		return "", fmt.Errorf("ensure user collection %s: %w", name, err)
	}
	return name, nil
}

func (g *Gateway) GlobalCollection() string { return g.globalCollection }
func (g *Gateway) ToolsCollection() string  { return g.toolsCollection }

func (g *Gateway) ensureCollection(ctx context.Context, name string, dim int) error {
	list, err := g.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.Collections {
		if c.Name == name {
			return nil
		}
	}
	_, err = g.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	g.log.Info().Str("collection", name).Int("dimension", dim).Msg("created vector collection")
	return nil
}

// NormalizeContent whitespace-collapses and lower-cases text before
// hashing, per spec §4.3's dedup rule.
func NormalizeContent(text string) string {
	fields := strings.Fields(text)
	return strings.ToLower(strings.Join(fields, " "))
}

// ContentHash returns the sha-256 hex digest of normalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(text)))
	return hex.EncodeToString(sum[:])
}

// PointID derives a deterministic UUID from a content hash so re-ingesting
// the same chunk upserts rather than duplicates (invariant I4).
func PointID(contentHash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(contentHash)).String()
}

var collectionSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeCollectionComponent(s string) string {
	return collectionSanitizer.ReplaceAllString(s, "_")
}

// Upsert writes p into collection, computing ContentHash/PointID if the
// caller didn't already set them.
func (g *Gateway) Upsert(ctx context.Context, collection string, p Point) error {
	if len(p.Vector) == 0 {
		return errors.New("vectorindex: vector cannot be empty")
	}
	if strings.TrimSpace(p.Content) == "" {
		return errors.New("vectorindex: content cannot be empty")
	}
	if p.ContentHash == "" {
		p.ContentHash = ContentHash(p.Content)
	}
	pointID := PointID(p.ContentHash)

	payload := buildPayload(p)

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: p.Vector}},
		},
		Payload: payload,
	}

	_, err := g.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point into %s: %w", collection, err)
	}
	return nil
}

// DeleteDocumentChunks removes every point whose document_id matches docID
// from collection.
func (g *Gateway) DeleteDocumentChunks(ctx context.Context, collection, docID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{matchKeyword("document_id", docID)},
	}
	_, err := g.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("delete document chunks from %s: %w", collection, err)
	}
	return nil
}

// DeleteUserCollection drops the entire per-user collection, used by
// account-deletion flows.
func (g *Gateway) DeleteUserCollection(ctx context.Context, uid string) error {
	name := fmt.Sprintf("user_%s_documents", sanitizeCollectionComponent(uid))
	_, err := g.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name})
	if err != nil {
		return fmt.Errorf("delete user collection %s: %w", name, err)
	}
	return nil
}

func matchKeyword(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
