package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pepavlin/agent-manager-sub000/internal/profile"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/agent"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/prompt"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/vector"
	"github.com/pepavlin/agent-manager-sub000/server"
	"github.com/pepavlin/agent-manager-sub000/store"
	"github.com/pepavlin/agent-manager-sub000/store/db"
)

var serverProfile = &profile.Profile{Version: "0.1.0"}

var rootCmd = &cobra.Command{
	Use:   "agentd",
	Short: "agentd is a project management agent backend",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	flags.String("addr", "", "binding address for the server")
	flags.Int("port", 8230, "binding port for the server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", `database driver, "postgres" or "sqlite"`)
	flags.String("dsn", "", "database connection string")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("agentd")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func run() error {
	serverProfile.FromViper(viper.GetViper())
	if err := serverProfile.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if serverProfile.IsDev() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver, err := db.NewDBDriver(serverProfile)
	if err != nil {
		return err
	}
	storeInstance := store.New(driver, serverProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return err
	}

	provider, err := ai.NewProvider(ai.ConfigFromProfile(serverProfile))
	if err != nil {
		return err
	}
	if serverProfile.IsAIEnabled() {
		if err := provider.Validate(ctx); err != nil {
			return err
		}
	} else {
		logger.Warn("AI provider not configured, turns will use the fallback response; set AGENTD_AI_API_KEY")
	}

	// Postgres carries the pgvector index in-database; the sqlite dev
	// profile falls back to the in-process index.
	var index vector.Index
	if serverProfile.Driver == "postgres" {
		index = vector.NewPGIndex(driver.GetDB())
	} else {
		index = vector.NewMemoryIndex()
	}

	memoryService := memory.NewService(storeInstance, index, provider, logger)
	retriever := prompt.NewRetriever(storeInstance, memoryService, index, provider, logger)
	executor := tools.NewExecutor(memoryService)
	orchestrator := agent.NewOrchestrator(storeInstance, retriever, provider, executor, memoryService, logger)

	srv := server.NewServer(serverProfile, storeInstance, orchestrator, memoryService, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		srv.Shutdown(ctx)
		cancel()
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
