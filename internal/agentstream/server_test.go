// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package agentstream

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/northbound/triangle/internal/agentstream/proto"
)

type fakeOrchestrator struct {
	fail bool
}

func (f *fakeOrchestrator) Run(ctx context.Context, req Request, emit EmitFunc) error {
	emit("status", "thinking", "researcher")
	emit("content", "hello ", "researcher")
	emit("content", "world", "researcher")
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

type fakeConverseServer struct {
	grpc.ServerStream
	sent []*proto.ConverseChunk
}

func (f *fakeConverseServer) Send(m *proto.ConverseChunk) error {
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeConverseServer) Context() context.Context { return context.Background() }

func TestServer_Converse_AccumulatesAndForwardsChunks(t *testing.T) {
	srv := NewServer(&fakeOrchestrator{}, zerolog.Nop())
	fake := &fakeConverseServer{}

	err := srv.Converse(&proto.ConverseRequest{ConversationID: "c1"}, fake)
	require.NoError(t, err)

	require.Len(t, fake.sent, 3)
	assert.Equal(t, proto.ChunkStatus, fake.sent[0].Type)
	assert.Equal(t, proto.ChunkContent, fake.sent[1].Type)
	assert.Equal(t, proto.ChunkContent, fake.sent[2].Type)
}

func TestServer_Converse_EmitsErrorChunkOnFailure(t *testing.T) {
	srv := NewServer(&fakeOrchestrator{fail: true}, zerolog.Nop())
	fake := &fakeConverseServer{}

	err := srv.Converse(&proto.ConverseRequest{ConversationID: "c1"}, fake)
	require.NoError(t, err) // Send itself doesn't fail; the error rides in a chunk

	last := fake.sent[len(fake.sent)-1]
	assert.Equal(t, proto.ChunkError, last.Type)
	assert.Contains(t, last.Message, "boom")
}
