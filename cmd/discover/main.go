// Command discover runs contact discovery for one hh.ru vacancy and prints
// the result. With -apply it runs the whole pipeline for -user instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-hrskip-automation/internal/apply"
	"go-hrskip-automation/internal/bootstrap"
	"go-hrskip-automation/internal/config"
	"go-hrskip-automation/internal/hh"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		vacancyID  = flag.String("vacancy", "", "hh.ru vacancy id (required)")
		site       = flag.String("site", "", "override the employer website")
		doApply    = flag.Bool("apply", false, "create an application and send the email")
		userID     = flag.String("user", "", "user id, required with -apply")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall deadline")
	)
	flag.Parse()

	if *vacancyID == "" || (*doApply && *userID == "") {
		flag.Usage()
		os.Exit(2)
	}

	//load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	vacancy, err := hh.NewClient(cfg.HH.BaseURL, cfg.HH.UserAgent, cfg.HH.Timeout).GetVacancy(ctx, *vacancyID)
	if err != nil {
		log.Fatalf("❌ Failed to load vacancy: %v", err)
	}
	if *site != "" {
		vacancy.Employer.SiteURL = *site
	}
	log.Printf("📄 %s @ %s (%s)", vacancy.Title, vacancy.Employer.Name, vacancy.Employer.SiteURL)

	classifier, err := bootstrap.NewClassifier(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init LLM: %v", err)
	}

	var newService func(disc apply.Discoverer) *apply.Service
	if *doApply {
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

		newService = func(disc apply.Discoverer) *apply.Service {
			return apply.New(st, disc, dispatcher, apply.WithLocker(rdb), apply.WithPublisher(rdb))
		}
	}

	// the browser goes last so earlier failures cannot leak it
	engine, err := bootstrap.NewEngine(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init browser: %v", err)
	}
	defer engine.Close()

	disc := bootstrap.NewDiscovery(cfg, engine, classifier)
	if !*doApply {
		printJSON(disc.DiscoverContact(ctx, vacancy))
		return
	}

	app, err := newService(disc).Apply(ctx, *userID, vacancy)
	if err != nil {
		engine.Close()
		log.Fatalf("❌ Apply failed: %v", err)
	}
	printJSON(app)
	log.Printf("🏁 Application %s finished with status %s", app.ID, app.Status)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("⚠️ Failed to marshal result: %v", err)
		return
	}
	fmt.Println(string(data))
}
