// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package proto is a hand-rolled (non-protoc) gRPC service definition, the
// same style the teacher's internal/proto/hive.pb.go used for its two
// unary RPCs, extended here to a single server-streaming RPC matching spec
// §6.5's chunk protocol.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ChunkType enumerates the three kinds of stream chunk spec §6.5 defines.
type ChunkType int32

const (
	ChunkStatus  ChunkType = 0
	ChunkContent ChunkType = 1
	ChunkError   ChunkType = 2
)

// ConverseRequest carries the session/context the orchestrator needs to
// route a conversation turn to the right agent.
type ConverseRequest struct {
	UserID         string
	ConversationID string
	SessionID      string
	Persona        map[string]string
	AgentType      string // optional override
	Context        map[string]string
}

// ConverseChunk is one frame of the server's reply stream.
type ConverseChunk struct {
	Type      ChunkType
	Message   string
	AgentName string
}

// AgentStreamClient is the client-side gRPC API: a single bidirectional
// (here, server-streaming) RPC.
type AgentStreamClient interface {
	Converse(ctx context.Context, in *ConverseRequest, opts ...grpc.CallOption) (AgentStream_ConverseClient, error)
}

// AgentStream_ConverseClient is the stream handle returned by Converse.
type AgentStream_ConverseClient interface {
	Recv() (*ConverseChunk, error)
	grpc.ClientStream
}

type agentStreamClient struct {
	cc grpc.ClientConnInterface
}

func NewAgentStreamClient(cc grpc.ClientConnInterface) AgentStreamClient {
	return &agentStreamClient{cc: cc}
}

func (c *agentStreamClient) Converse(ctx context.Context, in *ConverseRequest, opts ...grpc.CallOption) (AgentStream_ConverseClient, error) {
	stream, err := c.cc.NewStream(ctx, &AgentStream_ServiceDesc.Streams[0], "/agentstream.AgentStream/Converse", opts...)
	if err != nil {
		return nil, err
	}
	x := &agentStreamConverseClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type agentStreamConverseClient struct {
	grpc.ClientStream
}

func (x *agentStreamConverseClient) Recv() (*ConverseChunk, error) {
	m := new(ConverseChunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AgentStreamServer is the server-side gRPC API.
type AgentStreamServer interface {
	Converse(*ConverseRequest, AgentStream_ConverseServer) error
	mustEmbedUnimplementedAgentStreamServer()
}

// AgentStream_ConverseServer is the stream handle the server-side
// implementation sends chunks through.
type AgentStream_ConverseServer interface {
	Send(*ConverseChunk) error
	grpc.ServerStream
}

type agentStreamConverseServer struct {
	grpc.ServerStream
}

func (x *agentStreamConverseServer) Send(m *ConverseChunk) error {
	return x.ServerStream.SendMsg(m)
}

// UnimplementedAgentStreamServer can be embedded to have forward
// compatible implementations.
type UnimplementedAgentStreamServer struct{}

func (UnimplementedAgentStreamServer) Converse(*ConverseRequest, AgentStream_ConverseServer) error {
	return status.Errorf(codes.Unimplemented, "method Converse not implemented")
}

func (UnimplementedAgentStreamServer) mustEmbedUnimplementedAgentStreamServer() {}

// RegisterAgentStreamServer registers the service with the provided gRPC
// server registrar.
func RegisterAgentStreamServer(s grpc.ServiceRegistrar, srv AgentStreamServer) {
	s.RegisterService(&AgentStream_ServiceDesc, srv)
}

// AgentStream_ServiceDesc describes the AgentStream service to gRPC.
var AgentStream_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "agentstream.AgentStream",
	HandlerType: (*AgentStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Converse",
			Handler:       _AgentStream_Converse_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "internal/agentstream/proto/agentstream.proto",
}

func _AgentStream_Converse_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ConverseRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(AgentStreamServer).Converse(m, &agentStreamConverseServer{stream})
}
