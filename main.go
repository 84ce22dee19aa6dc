package main

import (
	"github.com/wfunc/betroom/config"
	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/persistence"
	"github.com/wfunc/betroom/server"
)

func main() {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Historical results are best-effort: the server runs without a
	// database, it just stops recording finished games.
	var db persistence.Database
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "pq":
		db, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		db, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	if err != nil {
		logger.Log.Warnf("Database unavailable, game history disabled: %v", err)
		db = nil
	} else {
		logger.Log.Info("Database connection successful.")
		defer db.Close()
	}

	gameServer := server.NewGameServer(cfg, db)

	logger.Log.Infof("Starting betroom server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
