package main

import (
	"context"
	"os"

	"github.com/Aref-Yazdanpanah/orderflow-backend/config"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/database"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/logger"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/migrate"

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

	ctx := context.Background()
	opts := migrate.DefaultMigrateOptions()

	if err := migrate.MigrateDB(ctx, db, log, opts); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}

	log.Info("Миграция успешно завершена")
}
