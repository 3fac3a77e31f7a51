package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	loadDotenv()
	cfg := loadConfig()

	sqlDB, err := openSQL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer sqlDB.Close()
	log.Info().Msg("db connected")

	db, err := openGorm(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("gorm init failed")
	}
	if err := autoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	a := &app{
		cfg: cfg,
		db:  db,
		idp: newSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey),
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Str("corsOrigin", cfg.CORSOrigin).Msg("API listening")
	log.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}
