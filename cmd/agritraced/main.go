package main

import (
	"log"

	"agritrace/internal/config"
	"agritrace/internal/infra/db"
	httpinfra "agritrace/internal/infra/http"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	srv := httpinfra.NewServer(cfg, store)
	defer srv.Stop()
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
