package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-hrskip-automation/internal/apply"
	"go-hrskip-automation/internal/bootstrap"
	"go-hrskip-automation/internal/config"
	"go-hrskip-automation/internal/hh"
	"go-hrskip-automation/internal/reporter"
	"go-hrskip-automation/internal/scheduler"
	"go-hrskip-automation/internal/server"
	"go-hrskip-automation/internal/telegram"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	//load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("🚀 Starting HR Skip API...")

	classifier, err := bootstrap.NewClassifier(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init LLM: %v", err)
	}

	dispatcher, err := bootstrap.NewDispatcher(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init mailer: %v", err)
	}

	st, closeStore, err := bootstrap.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer closeStore()

	rdb := bootstrap.NewRedis(ctx, cfg)
	defer rdb.Close()

	opts := []apply.Option{apply.WithLocker(rdb), apply.WithPublisher(rdb)}
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token)
		if err != nil {
			log.Printf("⚠️ Telegram notifications disabled: %v", err)
		} else {
			opts = append(opts, apply.WithNotifier(bot))
			log.Println("🤖 Telegram Bot initialized.")
		}
		if cfg.Telegram.ChatID != 0 {
			rep, err := reporter.NewTelegramReporter(cfg)
			if err != nil {
				log.Printf("⚠️ Telegram alerts disabled: %v", err)
			} else {
				opts = append(opts, apply.WithAlerter(rep))
			}
		}
	}

	// the browser goes last so earlier failures cannot leak it
	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init browser: %v", err)
	}
	defer engine.Close()
	log.Printf("✅ Browser initialized (%s)", cfg.Browser.Engine)

	disc := bootstrap.NewDiscovery(cfg, engine, classifier)
	svc := apply.New(st, disc, dispatcher, opts...)

	sweeper := scheduler.New(svc, cfg.Sweep.Schedule, cfg.Sweep.StaleAfter)
	if err := sweeper.Start(ctx); err != nil {
		engine.Close()
		log.Fatalf("❌ Failed to start sweeper: %v", err)
	}

	api := server.New(ctx, svc, hh.NewClient(cfg.HH.BaseURL, cfg.HH.UserAgent, cfg.HH.Timeout))
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %d", cfg.App.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	sweeper.Stop()
	//wait for in-flight runs to record their outcome
	api.Wait()

	log.Println("🏁 Server stopped.")
}
