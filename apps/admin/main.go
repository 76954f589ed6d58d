package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alumnihub/backend/core"
	logsvc "github.com/alumnihub/backend/services/logger"
	"github.com/alumnihub/backend/storage/database"
	sqlxrepos "github.com/alumnihub/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		dialect: conf.Database.Engine,
		repo:    sqlxrepos.NewAlumniRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
