package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dcm-project/policy-sdk/internal/apiserver"
	"github.com/dcm-project/policy-sdk/internal/config"
	handlers "github.com/dcm-project/policy-sdk/internal/handlers/v1"
	"github.com/dcm-project/policy-sdk/internal/logging"
	"github.com/dcm-project/policy-sdk/internal/metrics"
	"github.com/dcm-project/policy-sdk/internal/service"
	"github.com/dcm-project/policy-sdk/internal/store"
	"github.com/dcm-project/policy-sdk/internal/validation"
	"github.com/rs/zerolog/log"
)

type Server interface {
	Run(ctx context.Context) error
}

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	logging.Setup(cfg.Service.LogLevel, cfg.Service.LogPretty)

	// Initialize database
	db, err := store.InitDB(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize database")
		return 1
	}

	dataStore := store.NewStore(db)
	defer func() {
		if err := dataStore.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}()

	m := metrics.New()
	policyService := service.NewPolicyService(dataStore, m)
	ruleService := service.NewRuleService(dataStore, m)

	if cfg.Service.SeedDefaultPolicies {
		if err := policyService.SeedDefaultPolicies(log.Logger.WithContext(context.Background())); err != nil {
			log.Error().Err(err).Msg("failed to seed default policies")
			return 1
		}
	}

	validator, err := validation.New()
	if err != nil {
		log.Error().Err(err).Msg("failed to compile request schemas")
		return 1
	}
	handler := handlers.NewHandler(policyService, ruleService, validator)

	listener, err := net.Listen("tcp", cfg.Service.BindAddress)
	if err != nil {
		log.Error().Err(err).Str("address", cfg.Service.BindAddress).Msg("failed to create API listener")
		return 1
	}
	defer listener.Close()

	srv, err := apiserver.New(cfg, listener, handler, m)
	if err != nil {
		log.Error().Err(err).Msg("failed to build API server")
		return 1
	}

	if err := runServers([]Server{srv}); err != nil {
		return 1
	}

	return 0
}

func runServers(servers []Server) error {
	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, len(servers))
	for _, server := range servers {
		wg.Go(func() {
			if err := server.Run(ctx); err != nil {
				errChan <- err
			}
		})
	}

	go func() {
		wg.Wait()
		close(errChan)
	}()

	var firstErr error
	for err := range errChan {
		if err != nil {
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			log.Error().Err(err).Msg("server error")
		}
	}

	return firstErr
}
