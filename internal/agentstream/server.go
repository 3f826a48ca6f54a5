// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package agentstream

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/agentstream/proto"
)

// Orchestrator is the minimal surface the subgraph runtime (C10) exposes to
// the streaming transport: run one conversation turn, emitting progress and
// content through emit, and return once the turn is finished or ctx is
// cancelled. Implementations should treat cancellation as a request to stop
// emitting and return promptly.
type Orchestrator interface {
	Run(ctx context.Context, req Request, emit EmitFunc) error
}

// Request mirrors proto.ConverseRequest in plain Go types so the subgraph
// package does not need to import the gRPC layer. JSON tags let a Request
// also travel as a task fabric job payload for queued (non-streaming)
// conversation turns.
type Request struct {
	UserID         string            `json:"user_id"`
	ConversationID string            `json:"conversation_id"`
	SessionID      string            `json:"session_id"`
	Persona        map[string]string `json:"persona"`
	AgentType      string            `json:"agent_type"`
	Context        map[string]string `json:"context"`
}

// EmitFunc is how an Orchestrator reports progress. kind is one of
// "status", "content", "error".
type EmitFunc func(kind, message, agentName string)

// Server adapts an Orchestrator to the generated gRPC AgentStreamServer
// interface, translating each emitted frame into a wire ConverseChunk.
type Server struct {
	proto.UnimplementedAgentStreamServer
	orchestrator Orchestrator
	log          zerolog.Logger
}

// NewServer constructs a Server backed by the given Orchestrator.
func NewServer(orchestrator Orchestrator, log zerolog.Logger) *Server {
	return &Server{orchestrator: orchestrator, log: log.With().Str("component", "agentstream").Logger()}
}

// Converse implements proto.AgentStreamServer by running the turn through
// the Orchestrator and forwarding every emitted frame as a stream chunk.
func (s *Server) Converse(req *proto.ConverseRequest, stream proto.AgentStream_ConverseServer) error {
	ctx := stream.Context()

	in := Request{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		SessionID:      req.SessionID,
		Persona:        req.Persona,
		AgentType:      req.AgentType,
		Context:        req.Context,
	}

	sendErr := error(nil)
	emit := func(kind, message, agentName string) {
		if sendErr != nil {
			return
		}
		ct := proto.ChunkStatus
		switch kind {
		case "content":
			ct = proto.ChunkContent
		case "error":
			ct = proto.ChunkError
		}
		if err := stream.Send(&proto.ConverseChunk{Type: ct, Message: message, AgentName: agentName}); err != nil {
			sendErr = err
		}
	}

	if err := s.orchestrator.Run(ctx, in, emit); err != nil {
		s.log.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("orchestrator run failed")
		emit("error", err.Error(), "")
	}
	return sendErr
}
