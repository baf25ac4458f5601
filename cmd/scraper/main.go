package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"CatalogScraper/internal/app"
	"CatalogScraper/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to the YAML configuration file")
	task := flag.String("task", "extract", "Task to run: extract or serve")
	categories := flag.String("categories", "", "Comma-separated category ids to extract")
	flag.Parse()

	categoryIDs := utils.SplitList(*categories)
	switch *task {
	case "extract":
		if len(categoryIDs) == 0 {
			logrus.Fatal("No categories given, use -categories 5009,5010")
		}
	case "serve":
	default:
		logrus.Fatalf("Unknown task: %s.", *task)
	}

	application, err := app.New(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	application.Log.WithField("task", *task).Info("Running task")

	if *task == "extract" {
		if err = application.InitScraper(); err == nil {
			application.StartMetricsListener(ctx)
			err = application.RunExtraction(ctx, categoryIDs)
		}
	} else {
		err = application.ServeAPI(ctx)
	}

	stop()
	if closeErr := application.Close(); closeErr != nil {
		application.Log.WithError(closeErr).Warn("Failed to release resources")
	}
	if err != nil {
		application.Log.WithError(err).Error("Task finished with errors")
		os.Exit(1)
	}
}
