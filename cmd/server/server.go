package main

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/api"
	"github.com/voxcore/voxcore/internal/config"
	"github.com/voxcore/voxcore/internal/database"
	"github.com/voxcore/voxcore/internal/logger"
	appMiddleware "github.com/voxcore/voxcore/internal/middleware"
	"github.com/voxcore/voxcore/internal/metrics"
	"github.com/voxcore/voxcore/internal/repository"
	"github.com/voxcore/voxcore/internal/transport"
	"github.com/voxcore/voxcore/internal/vectorstore"
	"github.com/voxcore/voxcore/internal/voice/llm"
	"github.com/voxcore/voxcore/internal/voice/rag"
	"github.com/voxcore/voxcore/internal/voice/session"
	"github.com/voxcore/voxcore/internal/voice/stt"
	"github.com/voxcore/voxcore/internal/voice/tools"
	"github.com/voxcore/voxcore/internal/voice/tts"
)

const embeddingDim = 1536

func main() {
	if err := godotenv.Load(); err != nil {
		// not an error - system env vars are fine
	}

	cfg := config.Load()
	logger.Init(cfg.IsDevelopment())
	log := logger.WithComponent("main")
	log.Info().Msg("Starting voxcore voice orchestration engine")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	repos := repository.NewRepositories(db)

	meterProvider, metricsHandler, err := metrics.InitProvider("voxcore")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics provider")
	}
	met, err := metrics.New(meterProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics instruments")
	}

	sttClient := stt.NewClient(cfg.DeepgramAPIKey)

	ttsChain := tts.NewChain(met,
		tts.NewElevenLabsProvider(cfg.ElevenLabsKey, cfg.ElevenLabsVoice),
		tts.NewCartesiaProvider(cfg.CartesiaAPIKey, cfg.CartesiaVoiceID),
		tts.NewOpenAIProvider(cfg.OpenAIKey),
		tts.NewFreeProvider(cfg.FFmpegPath),
	)

	llmClient := llm.NewClient(cfg.OpenAIKey, cfg.AnthropicKey, cfg.DeepSeekKey, cfg.GroqKey, cfg.GoogleAPIKey)

	vectorStore := newVectorStore(cfg, db, log)
	var retriever *rag.Retriever
	if vectorStore != nil {
		retriever = rag.NewRetriever(vectorStore, llmClient)
	} else {
		log.Warn().Msg("no vector store configured, RAG retrieval disabled")
	}

	var mcpSource tools.MCPSource
	if cfg.MCPServerURL != "" {
		host := tools.NewMCPHost()
		if err := host.Connect(context.Background(), tools.MCPServerConfig{Name: "default", URL: cfg.MCPServerURL}); err != nil {
			log.Warn().Err(err).Msg("failed to connect to MCP server")
		} else {
			mcpSource = host
		}
	}
	executor := tools.NewExecutor(repos.CustomFunction, repos.FunctionCallLog, mcpSource, met)

	deps := session.Deps{
		STTClient: sttClient,
		TTSChain:  ttsChain,
		LLMClient: llmClient,
		Executor:  executor,
		Retriever: retriever,
		Repos:     repos,
		Metrics:   met,
	}

	browserHandler := transport.NewBrowserHandler(repos.Agent, repos.Call, deps)
	telephonyHandler := transport.NewTelephonyHandler(repos.Call, repos.Agent, deps)
	webhookHandler := transport.NewTelephonyWebhookHandler(repos.Call, repos.Agent, cfg.AppURL)

	var sfuHandler *transport.SFUHandler
	var livekitTokenHandler *transport.LiveKitTokenHandler
	if cfg.LiveKitURL != "" && cfg.LiveKitAPIKey != "" {
		sfuHandler = transport.NewSFUHandler(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, repos.Call, repos.Agent, deps, nil)
		livekitTokenHandler = transport.NewLiveKitTokenHandler(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, repos.Call, repos.Agent, sfuHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", api.Health)
	r.Handle("/metrics", metricsHandler)

	r.Route("/telephony", func(r chi.Router) {
		r.Post("/incoming", webhookHandler.Incoming)
		r.Post("/outbound-connect", webhookHandler.OutboundConnect)
		r.Post("/status", webhookHandler.Status)
	})

	r.Get("/ws/voice/{agentId}", browserHandler.ServeHTTP)
	r.Get("/ws/voice-telephony", telephonyHandler.ServeHTTP)

	if livekitTokenHandler != nil {
		r.Post("/livekit/token", livekitTokenHandler.ServeHTTP)
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

// newVectorStore selects pgvector (colocated, default) or Qdrant per
// VECTOR_STORE_PROVIDER. Returns nil if neither is reachable/configured,
// which disables RAG rather than failing startup — a knowledge base is
// optional per agent.
func newVectorStore(cfg *config.Config, db *gorm.DB, log zerolog.Logger) vectorstore.Store {
	if cfg.VectorStoreProvider == "qdrant" {
		host, portStr, err := net.SplitHostPort(cfg.QdrantHost)
		if err != nil {
			log.Error().Err(err).Str("qdrant_host", cfg.QdrantHost).Msg("invalid QDRANT_HOST, expected host:port")
			return nil
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Error().Err(err).Msg("invalid qdrant port")
			return nil
		}
		store, err := vectorstore.NewQdrantStore(host, port, cfg.QdrantAPIKey, embeddingDim)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to qdrant")
			return nil
		}
		return store
	}

	store, err := vectorstore.NewPGVectorStore(db)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pgvector store")
		return nil
	}
	return store
}
