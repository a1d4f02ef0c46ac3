package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lifesim/internal/analytics"
	"lifesim/internal/auth"
	"lifesim/internal/config"
	"lifesim/internal/llm"
	"lifesim/internal/logger"
	"lifesim/internal/scheduler"
	"lifesim/internal/session"
	"lifesim/internal/simulation"
	"lifesim/internal/storage"
	"lifesim/internal/telegram"
	"lifesim/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ configuration error: %v", err)
	}
	if err := logger.Init(cfg.LogDevelopment, cfg.LogLevel); err != nil {
		log.Fatalf("❌ failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatal("❌ lifesim stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	lg := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider), cfg.Model())
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}
	lg.Info("🧠 llm client ready", zap.String("provider", string(cfg.LLMProvider)), zap.String("model", cfg.Model()))

	requester := simulation.NewRequester(client, simulation.LoadInstruction(cfg.SystemPromptPath))

	var rec storage.Recorder
	if cfg.UsageLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.UsageLogPath)
		if err != nil {
			lg.Warn("⚠️ usage log disabled", zap.String("path", cfg.UsageLogPath), zap.Error(err))
		} else {
			rec = fr
		}
	}

	sessions := session.NewManager(requester, usageObserver(rec))

	var bot *telegram.Bot
	if cfg.TelegramBotToken != "" {
		bot, err = telegram.New(cfg.TelegramBotToken, auth.New(cfg.AllowedUsers, cfg.AdminUserID), sessions, cfg.MessageParseMode)
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
	}

	sched := scheduler.New()
	sched.AddJob("session sweep", cfg.SessionSweepCron, func(ctx context.Context) error {
		if n := sessions.Sweep(time.Now().Add(-cfg.SessionTTL)); n > 0 {
			lg.Debug("🧹 expired sessions removed", zap.Int("count", n), zap.Int("remaining", sessions.Len()))
		}
		return nil
	})
	if rec != nil {
		sched.AddJob("daily report", cfg.ReportCron, dailyReport(rec, bot))
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	ws := web.NewWebServer(sessions, cfg.HTTPAddr)
	ws.SetJobStatus(sched)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(ws.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ws.Stop(shutdownCtx)
	})
	if bot != nil {
		g.Go(func() error {
			bot.Start(gctx)
			return nil
		})
	}

	err = g.Wait()
	lg.Info("⏳ waiting for in-flight simulations")
	sessions.Wait()
	return err
}

// usageObserver appends a content-free usage event for every finished request.
func usageObserver(rec storage.Recorder) func(session.Outcome) {
	if rec == nil {
		return nil
	}
	return func(o session.Outcome) {
		if err := rec.AppendEvent(storage.EventFromOutcome(o)); err != nil {
			logger.Get().Warn("failed to append usage event", zap.Error(err))
		}
	}
}

func dailyReport(rec storage.Recorder, bot *telegram.Bot) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		events, err := rec.LoadEvents()
		if err != nil {
			return fmt.Errorf("load usage events: %w", err)
		}
		stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
		summary := stats.GenerateReportSummary()
		detail, err := stats.ToJSON()
		if err != nil {
			return fmt.Errorf("encode usage stats: %w", err)
		}
		logger.Get().Info("📊 daily usage report",
			zap.Int("total", stats.TotalSimulations),
			zap.Int("failed", stats.Failed),
			zap.String("stats", detail),
		)
		if bot == nil {
			return nil
		}
		if err := bot.SendReport(ctx, summary); err != nil {
			return fmt.Errorf("send report to admin: %w", err)
		}
		return nil
	}
}
