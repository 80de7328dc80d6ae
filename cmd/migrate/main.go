package main

import (
	"context"
	"os"

	"warehouse-service/config"
	"warehouse-service/internal/migrate"
	"warehouse-service/pkg/database"
	"warehouse-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDBForMigration(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	if err := migrate.MigrateWarehouseDB(context.Background(), db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migration completed")
}
