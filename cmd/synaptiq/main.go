package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/synaptiq/synaptiq/internal/config"
	"github.com/synaptiq/synaptiq/internal/dictionary"
	"github.com/synaptiq/synaptiq/internal/history"
	"github.com/synaptiq/synaptiq/internal/knowledge"
	"github.com/synaptiq/synaptiq/internal/persist"
	"github.com/synaptiq/synaptiq/internal/pipeline"
	"github.com/synaptiq/synaptiq/internal/vocab"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	assistant, err := buildAssistant(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer assistant.Close()

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		assistant.Close()
		cancel()
		os.Exit(0)
	}()

	printBanner()
	runREPL(ctx, assistant)
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = level
	return zapCfg.Build()
}

func buildAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Assistant, error) {
	store, err := buildStore(cfg.Persistence)
	if err != nil {
		return nil, err
	}

	var dict pipeline.Dictionary
	if cfg.Dictionary.Enabled {
		dict = dictionary.NewClient(&dictionary.Config{
			BaseURL:        cfg.Dictionary.BaseURL,
			Timeout:        cfg.Dictionary.Timeout,
			RequestsPerMin: cfg.Dictionary.RequestsPerMin,
		}, logger)
	}

	var histLog *history.Log
	if cfg.History.Enabled {
		histLog, err = history.Open(expandHome(cfg.History.DBPath))
		if err != nil {
			logger.Warn("history log unavailable", zap.Error(err))
		}
	}

	vocabStore := vocab.NewStore(logger)
	base := knowledge.NewBase(logger)
	orch := pipeline.NewOrchestrator(&pipeline.Config{
		MaxIterations:   cfg.Pipeline.MaxIterations,
		RefineThreshold: cfg.Pipeline.RefineThreshold,
		LookupTimeout:   cfg.Pipeline.LookupTimeout,
		MinLearnLength:  cfg.Pipeline.MinLearnLength,
	}, vocabStore, base, dict, logger)

	assistant := pipeline.NewAssistant(orch, vocabStore, base, store, histLog, logger)
	if err := assistant.Initialize(ctx, cfg.Seed.Dir); err != nil {
		return nil, fmt.Errorf("initialize assistant: %w", err)
	}
	return assistant, nil
}

func buildStore(cfg config.PersistenceConfig) (persist.Store, error) {
	switch cfg.Backend {
	case "memory":
		return persist.NewMemory(), nil
	case "badger":
		return persist.NewBadger(cfg.BadgerPath)
	case "redis":
		return persist.NewRedis(persist.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}

func runREPL(ctx context.Context, assistant *pipeline.Assistant) {
	scanner := bufio.NewScanner(os.Stdin)
	lastMessageID := ""

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(input, assistant, lastMessageID) {
				return
			}
			continue
		}

		reply, err := assistant.ProcessMessage(ctx, input)
		if err != nil {
			fmt.Printf("Error: %v\n\n", err)
			continue
		}
		lastMessageID = reply.MessageID

		fmt.Printf("\nSynaptiq: %s\n", reply.Content)
		fmt.Printf("  [intent: %s | confidence: %.2f]\n\n", reply.Intent, reply.Confidence)
	}
}

// handleCommand runs one slash command; returns true when the REPL should
// exit.
func handleCommand(cmd string, assistant *pipeline.Assistant, lastMessageID string) bool {
	parts := strings.Fields(cmd)

	switch parts[0] {
	case "/help":
		fmt.Println("\nCommands:")
		fmt.Println("  /help                    show this help")
		fmt.Println("  /stats                   session statistics")
		fmt.Println("  /history                 conversation window")
		fmt.Println("  /good, /bad              rate the last answer")
		fmt.Println("  /export <file>           dump session state as JSON")
		fmt.Println("  /exit                    quit")
		fmt.Println()
	case "/stats":
		stats := assistant.GetStats()
		fmt.Printf("\nMessages: %d | Words learned: %d | Vocabulary: %d | Knowledge: %d\n",
			stats.MessagesProcessed, stats.WordsLearned, stats.VocabularySize, stats.KnowledgeItems)
		fmt.Printf("Avg confidence: %.2f | Uptime: %s\n\n",
			stats.AvgConfidence, stats.Uptime.Round(1e9))
	case "/history":
		hist := assistant.History()
		if len(hist) == 0 {
			fmt.Println("\nNo history yet")
			fmt.Println()
			return false
		}
		fmt.Println()
		for i, msg := range hist {
			fmt.Printf("%d. %s: %s\n", i+1, msg.Role, truncate(msg.Content, 70))
		}
		fmt.Println()
	case "/good", "/bad":
		if lastMessageID == "" {
			fmt.Println("\nNothing to rate yet")
			fmt.Println()
			return false
		}
		fb := knowledge.FeedbackPositive
		if parts[0] == "/bad" {
			fb = knowledge.FeedbackNegative
		}
		if err := assistant.ProvideFeedback(lastMessageID, fb); err != nil {
			fmt.Printf("\nFeedback failed: %v\n\n", err)
			return false
		}
		fmt.Println("\nThanks, noted.")
		fmt.Println()
	case "/export":
		if len(parts) < 2 {
			fmt.Println("\nUsage: /export <file>")
			fmt.Println()
			return false
		}
		f, err := os.Create(parts[1])
		if err != nil {
			fmt.Printf("\nExport failed: %v\n\n", err)
			return false
		}
		defer f.Close()
		if err := assistant.ExportData(f); err != nil {
			fmt.Printf("\nExport failed: %v\n\n", err)
			return false
		}
		fmt.Printf("\nExported to %s\n\n", parts[1])
	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true
	default:
		fmt.Printf("\nUnknown command %s (try /help)\n\n", parts[0])
	}
	return false
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

func printBanner() {
	fmt.Printf(`
Synaptiq %s - conversational knowledge pipeline
Type a message, or /help for commands.

`, version)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
