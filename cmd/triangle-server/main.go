// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Command triangle-server is the primary API process: it wires the
// database manager, vector gateway, folder engine, document service,
// filesystem watcher, RSS scheduler, task fabric, and streaming agent
// orchestrator together and serves the gRPC agentstream endpoint,
// generalizing the teacher's cmd/hive-server/main.go wiring (sqlite +
// single Hive gRPC service) into the platform's full component set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/northbound/triangle/internal/agentstream"
	agentproto "github.com/northbound/triangle/internal/agentstream/proto"
	"github.com/northbound/triangle/internal/config"
	"github.com/northbound/triangle/internal/dbmanager"
	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/embeddings"
	"github.com/northbound/triangle/internal/events"
	"github.com/northbound/triangle/internal/folders"
	"github.com/northbound/triangle/internal/parser"
	"github.com/northbound/triangle/internal/rss"
	"github.com/northbound/triangle/internal/subgraph"
	"github.com/northbound/triangle/internal/tasks"
	"github.com/northbound/triangle/internal/vectorindex"
	"github.com/northbound/triangle/internal/watcher"

	vectorgrpc "google.golang.org/grpc/credentials/insecure"
)

var envFile = flag.String("env-file", ".env", "path to a .env file to load")

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Str("process", "triangle-server").Logger()
	parser.SetLogger(log)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbmanager.New(ctx, dbmanager.Config{DSN: cfg.DB.DSN, Mode: dbmanager.ModePooled, MaxPoolSize: cfg.DB.MaxConns}.WithDefaults())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	vectorConn, err := grpc.NewClient(cfg.Vector.Addr, grpc.WithTransportCredentials(vectorgrpc.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("dial vector store")
	}
	defer vectorConn.Close()

	vectors, err := vectorindex.New(vectorConn, cfg.Vector.GlobalCollection, cfg.Vector.ToolsCollection, cfg.Vector.Dimension, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init vector gateway")
	}

	embedder, err := embeddings.NewEmbedder(embedderType(), map[string]string{"api_key": cfg.OpenAIAPIKey}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init embedder")
	}

	broadcaster := events.NewBroadcaster()
	folderEngine := folders.New(db)
	docRepo := documents.New(db)
	docService := documents.NewService(docRepo, folderEngine, vectors, embedder, broadcaster, cfg.UploadsRoot, log)

	redisClient, err := config.NewRedisClient(ctx, cfg.TaskFabric)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	fabric := tasks.NewFabric(redisClient, log)

	var fsWatcher *watcher.Manager
	if len(cfg.Watcher.WatchRoots) > 0 {
		fsWatcher = watcher.NewManager(cfg.Watcher.WatchRoots[0], docService, folderEngine, broadcaster, log)
		if err := fsWatcher.Start(ctx); err != nil {
			log.Error().Err(err).Msg("start filesystem watcher")
		}
	}

	rssRepo := rss.NewRepository(db)
	rssFetcher := rss.NewFetcher(30 * time.Second)
	rssIngestor := rss.NewIngestor(rssRepo, docService, docRepo, log)
	scheduler := rss.NewScheduler(rssRepo, rssFetcher, rssIngestor, log)
	go scheduler.Start(ctx, cfg.RSS.PollInterval, nil)

	stuckCleaner := rss.NewStuckFeedCleaner(rssRepo, log)
	go stuckCleaner.Run(ctx, cfg.RSS.StuckSweepEvery)

	retention := rss.NewRetention(rssRepo, docService, cfg.RSS.RetentionWindow, log)
	go runRetentionLoop(ctx, retention, log)

	llm := subgraph.NewLLM(cfg.OpenAIAPIKey, "")
	toolRouter := subgraph.NewToolRouter(vectors, embedder)
	orchestrator := newOrchestrator(llm, toolRouter, vectors, embedder, docRepo, log)

	if err := wireTaskFabric(ctx, fabric, redisClient, orchestrator, log); err != nil {
		log.Error().Err(err).Msg("wire task fabric queues")
	}

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.AgentStream.MaxMessageSize),
		grpc.MaxSendMsgSize(cfg.AgentStream.MaxMessageSize),
	)
	agentproto.RegisterAgentStreamServer(grpcServer, agentstream.NewServer(orchestrator, log))

	listener, err := net.Listen("tcp", cfg.AgentStream.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.AgentStream.GRPCAddr).Msg("listen")
	}

	go func() {
		log.Info().Str("addr", cfg.AgentStream.GRPCAddr).Msg("agentstream grpc server listening")
		if err := grpcServer.Serve(listener); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	grpcServer.GracefulStop()
	if fsWatcher != nil {
		fsWatcher.Stop()
	}
}

// wireTaskFabric registers the orchestrator-query queue and starts its
// worker pool, so long-running conversation turns submitted over the task
// fabric (rather than the synchronous agentstream RPC) run through the
// same orchestrator and land their result in the fabric's ResultStash.
func wireTaskFabric(ctx context.Context, fabric *tasks.Fabric, redisClient *redis.Client, orchestrator *orchestratorAdapter, log zerolog.Logger) error {
	queue, err := tasks.NewRedisQueue(redisClient, tasks.QueueOrchestratorQuery, log)
	if err != nil {
		return fmt.Errorf("new orchestrator query queue: %w", err)
	}
	fabric.RegisterQueue(tasks.QueueOrchestratorQuery, queue)

	stash := tasks.NewResultStash(redisClient)
	handler := func(ctx context.Context, job tasks.Job) (any, error) {
		var req agentstream.Request
		if err := json.Unmarshal(job.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode orchestrator job payload: %w", err)
		}

		var reply string
		err := orchestrator.Run(ctx, req, func(kind, message, agentName string) {
			if kind == "content" {
				reply += message
			}
		})
		if err != nil {
			return nil, err
		}
		if storeErr := stash.Store(ctx, job.TaskID, reply); storeErr != nil {
			log.Error().Err(storeErr).Str("task_id", job.TaskID).Msg("store orchestrator result")
		}
		return tasks.NewMarker(job.TaskID), nil
	}

	go func() {
		if err := fabric.StartWorkers(ctx, tasks.QueueOrchestratorQuery, handler, 3, tasks.RateLimit{}); err != nil {
			log.Error().Err(err).Msg("orchestrator query workers stopped")
		}
	}()
	return nil
}

func embedderType() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "openai"
	}
	return "mock"
}

func runRetentionLoop(ctx context.Context, r *rss.Retention, log zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Purge(ctx); err != nil {
				log.Error().Err(err).Msg("rss retention purge failed")
			}
		}
	}
}

// orchestratorAdapter satisfies agentstream.Orchestrator by routing a
// conversation turn through the retrieval subgraph before asking the LLM
// for a final reply. The assessment subgraph is compiled and held but not
// invoked by Run, and Request.AgentType is not consulted.
type orchestratorAdapter struct {
	llm        *subgraph.LLM
	toolRouter *subgraph.ToolRouter
	retrieval  *subgraph.CompiledGraph
	assessment *subgraph.CompiledGraph
	log        zerolog.Logger
}

func newOrchestrator(llm *subgraph.LLM, toolRouter *subgraph.ToolRouter, vectors *vectorindex.Gateway, embedder embeddings.Embedder, docRepo *documents.Repository, log zerolog.Logger) *orchestratorAdapter {
	retrieval, err := subgraph.BuildRetrievalGraph(subgraph.RetrievalDeps{Vectors: vectors, Embedder: embedder, DocRepo: docRepo, LLM: llm})
	if err != nil {
		log.Fatal().Err(err).Msg("compile retrieval subgraph")
	}
	assessment, err := subgraph.BuildAssessmentGraph(llm)
	if err != nil {
		log.Fatal().Err(err).Msg("compile assessment subgraph")
	}
	return &orchestratorAdapter{llm: llm, toolRouter: toolRouter, retrieval: retrieval, assessment: assessment, log: log}
}

func (o *orchestratorAdapter) Run(ctx context.Context, req agentstream.Request, emit agentstream.EmitFunc) error {
	query := req.Context["query"]
	emit("status", "retrieving context", "researcher")

	retrieved, err := o.retrieval.Invoke(ctx, req.ConversationID, subgraph.State{
		"query": query,
		"mode":  string(subgraph.RetrievalFast),
	})
	if err != nil {
		return fmt.Errorf("orchestrator: retrieval: %w", err)
	}

	emit("status", "composing answer", "researcher")
	answer, _, err := o.llm.Complete(ctx, fmt.Sprintf("Context:\n%s\n\nQuestion: %s", subgraph.StateString(retrieved, "context"), query), subgraph.CompleteOptions{MaxTokens: 800})
	if err != nil {
		return fmt.Errorf("orchestrator: compose answer: %w", err)
	}

	emit("content", answer, "researcher")
	return nil
}
