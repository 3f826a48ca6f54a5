// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Command triangle-worker is the task fabric's worker pool, split out of
// triangle-server into its own OS process so queue consumption scales and
// restarts independently of the API/gRPC surface, the way the teacher
// splits cmd/hive-server (API) from its background job runners. It
// registers and consumes all four named queues (internal/tasks.Queue*):
// orchestrator_query, rss_poll, article_process, and retention_purge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/northbound/triangle/internal/agentstream"
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

	vectorgrpc "google.golang.org/grpc/credentials/insecure"
)

var envFile = flag.String("env-file", ".env", "path to a .env file to load")

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Str("process", "triangle-worker").Logger()
	parser.SetLogger(log)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbmanager.New(ctx, dbmanager.Config{DSN: cfg.DB.DSN, Mode: dbmanager.ModeOneShot, MaxPoolSize: cfg.DB.MaxConns}.WithDefaults())
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

	docRepo := documents.New(db)
	folderEngine := folders.New(db)
	broadcaster := events.NewBroadcaster()
	docService := documents.NewService(docRepo, folderEngine, vectors, embedder, broadcaster, cfg.UploadsRoot, log)

	redisClient, err := config.NewRedisClient(ctx, cfg.TaskFabric)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	fabric := tasks.NewFabric(redisClient, log)

	rssRepo := rss.NewRepository(db)
	rssFetcher := rss.NewFetcher(30 * time.Second)
	rssIngestor := rss.NewIngestor(rssRepo, docService, docRepo, log)
	scheduler := rss.NewScheduler(rssRepo, rssFetcher, rssIngestor, log)
	retention := rss.NewRetention(rssRepo, docService, cfg.RSS.RetentionWindow, log)

	llm := subgraph.NewLLM(cfg.OpenAIAPIKey, "")
	toolRouter := subgraph.NewToolRouter(vectors, embedder)
	orchestrator := newWorkerOrchestrator(llm, toolRouter, vectors, embedder, docRepo, log)

	if err := wireQueues(ctx, fabric, redisClient, orchestrator, scheduler, rssIngestor, retention, log, cfg.TaskFabric.WorkerCount); err != nil {
		log.Fatal().Err(err).Msg("wire queue workers")
	}

	log.Info().Int("worker_count", cfg.TaskFabric.WorkerCount).Msg("triangle-worker running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// wireQueues registers each of the four named queues against its Redis
// list and starts a worker pool for it, one goroutine-pool per queue name
// so a slow orchestrator_query job never backs up rss_poll or
// retention_purge.
func wireQueues(
	ctx context.Context,
	fabric *tasks.Fabric,
	redisClient *redis.Client,
	orchestrator agentstream.Orchestrator,
	scheduler *rss.Scheduler,
	ingestor *rss.Ingestor,
	retention *rss.Retention,
	log zerolog.Logger,
	workerCount int,
) error {
	if workerCount <= 0 {
		workerCount = 3
	}

	stash := tasks.NewResultStash(redisClient)
	if err := startQueue(ctx, fabric, redisClient, tasks.QueueOrchestratorQuery, log,
		tasks.OrchestratorQueryHandler(orchestratorRunner{orchestrator}, stash), workerCount, tasks.RateLimit{}); err != nil {
		return fmt.Errorf("wire orchestrator_query: %w", err)
	}

	if err := startQueue(ctx, fabric, redisClient, tasks.QueueRSSPoll, log,
		tasks.RSSPollHandler(scheduler), 1, tasks.RSSPollLimit); err != nil {
		return fmt.Errorf("wire rss_poll: %w", err)
	}

	if err := startQueue(ctx, fabric, redisClient, tasks.QueueArticleProcess, log,
		tasks.ArticleProcessHandler(ingestor), workerCount, tasks.ArticleProcessLimit); err != nil {
		return fmt.Errorf("wire article_process: %w", err)
	}

	if err := startQueue(ctx, fabric, redisClient, tasks.QueueRetentionPurge, log,
		tasks.RetentionPurgeHandler(retention), 1, tasks.RateLimit{}); err != nil {
		return fmt.Errorf("wire retention_purge: %w", err)
	}

	return nil
}

// startQueue registers name against a fresh RedisQueue and launches its
// worker pool in the background, returning once registration succeeds so
// a misconfigured Redis connection is caught at startup rather than on the
// first job.
func startQueue(ctx context.Context, fabric *tasks.Fabric, redisClient *redis.Client, name string, log zerolog.Logger, handler tasks.HandlerFunc, workerCount int, rl tasks.RateLimit) error {
	queue, err := tasks.NewRedisQueue(redisClient, name, log)
	if err != nil {
		return fmt.Errorf("new %s queue: %w", name, err)
	}
	fabric.RegisterQueue(name, queue)

	go func() {
		if err := fabric.StartWorkers(ctx, name, handler, workerCount, rl); err != nil {
			log.Error().Err(err).Str("queue", name).Msg("queue workers stopped")
		}
	}()
	return nil
}

// orchestratorRunner adapts agentstream.Orchestrator's streaming Run
// method to tasks.OrchestratorRunner's accumulate-and-return shape, the
// same flattening internal/agentstream.Client itself does for its own
// callers.
type orchestratorRunner struct {
	orchestrator agentstream.Orchestrator
}

func (r orchestratorRunner) Run(ctx context.Context, q tasks.OrchestratorQuery) (string, error) {
	req := agentstream.Request{
		UserID:         q.UserID,
		ConversationID: q.ConversationID,
		SessionID:      q.SessionID,
		Persona:        map[string]string{"name": q.Persona},
		AgentType:      q.AgentType,
		Context:        stringifyContext(q.Context),
	}

	var reply string
	err := r.orchestrator.Run(ctx, req, func(kind, message, agentName string) {
		if kind == "content" {
			reply += message
		}
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func stringifyContext(ctx map[string]any) map[string]string {
	out := make(map[string]string, len(ctx))
	for k, v := range ctx {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func embedderType() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "openai"
	}
	return "mock"
}

func newWorkerOrchestrator(llm *subgraph.LLM, toolRouter *subgraph.ToolRouter, vectors *vectorindex.Gateway, embedder embeddings.Embedder, docRepo *documents.Repository, log zerolog.Logger) agentstream.Orchestrator {
	retrieval, err := subgraph.BuildRetrievalGraph(subgraph.RetrievalDeps{Vectors: vectors, Embedder: embedder, DocRepo: docRepo, LLM: llm})
	if err != nil {
		log.Fatal().Err(err).Msg("compile retrieval subgraph")
	}
	return &workerOrchestrator{llm: llm, toolRouter: toolRouter, retrieval: retrieval, log: log}
}

type workerOrchestrator struct {
	llm        *subgraph.LLM
	toolRouter *subgraph.ToolRouter
	retrieval  *subgraph.CompiledGraph
	log        zerolog.Logger
}

func (o *workerOrchestrator) Run(ctx context.Context, req agentstream.Request, emit agentstream.EmitFunc) error {
	query := req.Context["query"]
	emit("status", "retrieving context", "researcher")

	retrieved, err := o.retrieval.Invoke(ctx, req.ConversationID, subgraph.State{
		"query": query,
		"mode":  string(subgraph.RetrievalFast),
	})
	if err != nil {
		return fmt.Errorf("worker orchestrator: retrieval: %w", err)
	}

	emit("status", "composing answer", "researcher")
	answer, _, err := o.llm.Complete(ctx, fmt.Sprintf("Context:\n%s\n\nQuestion: %s", subgraph.StateString(retrieved, "context"), query), subgraph.CompleteOptions{MaxTokens: 800})
	if err != nil {
		return fmt.Errorf("worker orchestrator: compose answer: %w", err)
	}

	emit("content", answer, "researcher")
	return nil
}
