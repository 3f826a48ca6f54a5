// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package agentstream is the C8 client for the streaming agent
// orchestrator: a thin gRPC wrapper that accumulates a server-streamed
// Converse call into a final answer, the way internal/client.DroneClient
// wraps the teacher's unary Hive RPCs.
package agentstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"

	"github.com/northbound/triangle/internal/agentstream/proto"
)

// maxMsgSize raises the default 4MB gRPC frame limit; agent responses can
// carry long documents or transcripts in a single content chunk.
const maxMsgSize = 100 * 1024 * 1024

// ConverseInput is the request a caller sends to start a conversation turn.
type ConverseInput struct {
	UserID         string
	ConversationID string
	SessionID      string
	Persona        map[string]string
	AgentType      string
	Context        map[string]string
}

// ConverseResult is the accumulated outcome of a Converse stream.
type ConverseResult struct {
	Content   string
	AgentName string
}

// StatusFunc is invoked for every status chunk the server emits, in order,
// so a caller (e.g. a websocket relay to the UI) can forward progress.
type StatusFunc func(message, agentName string)

// Client wraps a generated AgentStreamClient with the accumulate-and-return
// helper most callers want instead of raw stream handling.
type Client struct {
	rpc proto.AgentStreamClient
}

// NewClient constructs a Client over an existing gRPC connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: proto.NewAgentStreamClient(cc)}
}

// DialOptions returns the grpc.CallOption set for agentstream calls,
// raising send/recv limits above the 4MB default.
func DialOptions() []grpc.CallOption {
	return []grpc.CallOption{
		grpc.MaxCallRecvMsgSize(maxMsgSize),
		grpc.MaxCallSendMsgSize(maxMsgSize),
	}
}

// Converse opens a streaming conversation turn, forwards every status
// chunk to onStatus (if non-nil), and returns once the stream closes with
// the accumulated content and the last reported agent name. A server-sent
// error chunk aborts the call and is returned as an error.
func (c *Client) Converse(ctx context.Context, in ConverseInput, onStatus StatusFunc) (*ConverseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	stream, err := c.rpc.Converse(ctx, &proto.ConverseRequest{
		UserID:         in.UserID,
		ConversationID: in.ConversationID,
		SessionID:      in.SessionID,
		Persona:        in.Persona,
		AgentType:      in.AgentType,
		Context:        in.Context,
	}, DialOptions()...)
	if err != nil {
		return nil, fmt.Errorf("agentstream: open converse stream: %w", err)
	}

	result := &ConverseResult{}
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("agentstream: recv: %w", err)
		}
		if chunk == nil {
			break
		}
		if chunk.AgentName != "" {
			result.AgentName = chunk.AgentName
		}
		switch chunk.Type {
		case proto.ChunkStatus:
			if onStatus != nil {
				onStatus(chunk.Message, chunk.AgentName)
			}
		case proto.ChunkContent:
			result.Content += chunk.Message
		case proto.ChunkError:
			return result, fmt.Errorf("agentstream: agent error: %s", chunk.Message)
		}
	}
	return result, nil
}
