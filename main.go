package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	contractx "github.com/kritsada/careline/agent/contract"
	invokerx "github.com/kritsada/careline/agent/invoker"
	memoryx "github.com/kritsada/careline/agent/memory"
	orchestratorx "github.com/kritsada/careline/agent/orchestrator"
	promptx "github.com/kritsada/careline/agent/prompt"
	sessionx "github.com/kritsada/careline/agent/session"
	toolx "github.com/kritsada/careline/agent/tool"
	configx "github.com/kritsada/careline/pkg/config"
	"github.com/kritsada/careline/pkg/interactiondb"
	_ "github.com/kritsada/careline/pkg/logger/autoload"
	"github.com/kritsada/careline/pkg/memoryapi"
	openrouterx "github.com/kritsada/careline/pkg/openrouter"
	serverx "github.com/kritsada/careline/server"
)

type AppConfig struct {
	MaxTurns    int `envconfig:"MAX_TURNS" split_words:"true" default:"10"`
	WindowPairs int `envconfig:"WINDOW_PAIRS" split_words:"true" default:"10"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("AGENT")
	serverCfg := configx.MustNew[serverx.Config]("SERVER")

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat model")
	}

	if client := openrouterx.NewClient(*openRouterCfg); client != nil {
		if err := openrouterx.CheckBackend(ctx, client, 10*time.Second); err != nil {
			log.Warn().Err(err).Msg("model backend probe failed, continuing anyway")
		}
	}

	memoryClient := buildMemoryClient()
	catalog := buildCatalog(memoryClient)

	inv, err := invokerx.New(chatModel, catalog, promptx.LoadPromptSet().System,
		invokerx.WithMaxTurns(appCfg.MaxTurns))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build invoker")
	}

	gateway := memoryx.NewGateway(storeOrNil(memoryClient), buildInteractionLog(ctx))
	history := buildHistory()

	orch, err := orchestratorx.New(inv, gateway, history,
		orchestratorx.WithWindowPairs(appCfg.WindowPairs))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	srv := serverx.New(*serverCfg, orch)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err := serverx.Shutdown(srv, *serverCfg); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// buildMemoryClient returns nil when the memory backend is not configured;
// the service then runs without long-term memory.
func buildMemoryClient() *memoryapi.Client {
	cfg, err := configx.New[memoryapi.Config]("MEMORY")
	if err != nil {
		log.Warn().Err(err).Msg("memory backend not configured, long-term memory disabled")
		return nil
	}
	client, err := memoryapi.NewClient(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("memory client unusable, long-term memory disabled")
		return nil
	}
	return client
}

func storeOrNil(client *memoryapi.Client) memoryx.Store {
	if client == nil {
		return nil
	}
	return client
}

func buildInteractionLog(ctx context.Context) memoryx.InteractionLog {
	cfg, err := configx.New[interactiondb.Config]("INTERACTION_DB")
	if err != nil || cfg.DSN == "" {
		log.Info().Msg("interaction db not configured, audit log disabled")
		return nil
	}
	db, err := interactiondb.NewDB(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("interaction db unusable, audit log disabled")
		return nil
	}
	store := interactiondb.NewStore(db, *cfg)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("interaction db schema check failed, audit log disabled")
		return nil
	}
	return store
}

func buildHistory() contractx.HistoryStore {
	cfg, err := configx.New[sessionx.RedisConfig]("REDIS")
	if err != nil {
		log.Warn().Err(err).Msg("redis not configured, conversation history disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return sessionx.NewRedisHistory(client, sessionx.WithHistoryTTL(cfg.TTL))
}

func buildCatalog(memoryClient *memoryapi.Client) *toolx.Catalog {
	catalog := toolx.NewCatalog()

	mustRegister(catalog, toolx.ReturnPolicyDescriptor(), toolx.GetReturnPolicy)
	mustRegister(catalog, toolx.ProductInfoDescriptor(), toolx.GetProductInfo)

	search := toolx.NewWebSearch()
	mustRegister(catalog, toolx.WebSearchDescriptor(), search.Handle)

	if memoryClient != nil {
		support := toolx.NewTechSupport(memoryClient, "")
		mustRegister(catalog, toolx.TechSupportDescriptor(), support.Handle)
	}

	return catalog
}

func mustRegister(catalog *toolx.Catalog, desc toolx.Descriptor, handler toolx.Handler) {
	if err := catalog.Register(desc, handler); err != nil {
		log.Fatal().Err(err).Str("tool", desc.Name).Msg("tool registration failed")
	}
}
