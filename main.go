package main

import (
	"os"
	"strings"

	"github.com/klokku/cycleledger/internal/app"
	log "github.com/sirupsen/logrus"
)

func init() {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if value := os.Getenv("LOG_LEVEL"); value != "" {
		parsed, err := log.ParseLevel(value)
		if err != nil {
			log.Fatalf("invalid LOG_LEVEL %q: %v", value, err)
		}
		level = parsed
	}
	log.SetLevel(level)
}

func main() {
	ledgerApp, err := app.NewApplication()
	if err != nil {
		log.Fatalf("failed to initialize ledger service: %v", err)
	}
	if err := ledgerApp.Run(); err != nil {
		log.Fatalf("ledger service stopped: %v", err)
	}
	log.Info("ledger service stopped")
}
