package main

import (
	"context"
	"flag"
	"log"

	"crm-intelligence/internal/config"
	"crm-intelligence/internal/database"
	"crm-intelligence/internal/engine"
	"crm-intelligence/pkg/logger"

	"go.uber.org/zap"
)

// Refreshes the denormalized effective strength for reporting. Optional:
// the read path always derives decay lazily from stored facts, so skipping
// this sweep never affects correctness.
func main() {
	owner := flag.String("owner", "", "restrict the sweep to one owner scope")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Init(cfg)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}

	params := engine.DefaultParams()
	params.DecayK = cfg.DecayK
	eng := engine.New(db, params)

	updated, err := eng.RecomputeEffectiveStrengths(context.Background(), *owner)
	if err != nil {
		logger.Fatal("decay sweep failed", zap.Error(err))
	}
	logger.Info("decay sweep complete", zap.Int("contacts_updated", updated))
}
