package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"CatalogScraper/internal/database"
	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/server"
	"CatalogScraper/pkg/config"
	"CatalogScraper/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to the YAML configuration file")
	flag.Parse()

	// The server loads its own config
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)

	repo, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open export database")
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, repo, cfg.Server.Port, metrics.New(prometheus.NewRegistry()), log); err != nil {
		log.WithError(err).Error("API server stopped")
	}
}
