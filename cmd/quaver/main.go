package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nvallance/quaver/internal/config"
	"github.com/nvallance/quaver/internal/handlers"
	"github.com/nvallance/quaver/internal/lavalink"
	"github.com/nvallance/quaver/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	db, err := repository.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	repo := repository.NewRepo(db)
	lava := lavalink.NewClient(cfg.LavalinkHost, cfg.LavalinkPort, cfg.LavalinkPassword, cfg.LavalinkSecure)
	bot := handlers.NewBot(cfg, repo, lava)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
