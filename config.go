package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL        string
	JWTSecret          string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	CORSOrigin         string
	Port               string
}

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Overload(p)
			log.Info().Str("path", p).Msg("env file loaded")
			return
		}
	}
}

func loadConfig() Config {
	cfg := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		CORSOrigin:         getenv("CORS_ORIGIN", "http://localhost:4200"),
		Port:               getenv("PORT", "5000"),
	}

	required := map[string]string{
		"DATABASE_URL":      cfg.DatabaseURL,
		"JWT_SECRET":        cfg.JWTSecret,
		"SUPABASE_URL":      cfg.SupabaseURL,
		"SUPABASE_ANON_KEY": cfg.SupabaseAnonKey,
	}
	for k, v := range required {
		if v == "" {
			log.Fatal().Msgf("missing required env %s", k)
		}
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
