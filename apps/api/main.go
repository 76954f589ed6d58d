package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers the /debug/pprof handlers
	"os"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/alumnihub/backend/apps/api/echo"
	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
	logsvc "github.com/alumnihub/backend/services/logger"
	sqlxrepos "github.com/alumnihub/backend/storage/database/sqlx"
)

const startupTimeout = time.Minute

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	if err := run(conf, logger); err != nil {
		logger.Error(err.Error(), err)
		logger.Close()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) error {
	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Backing services

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	in, err := setUpInfra(ctx, conf, logger)
	cancel()
	if err != nil {
		return err
	}
	defer in.close(logger)

	alumniSvc := alumni.NewService(sqlxrepos.NewAlumniRepository(in.db), in.otpStore, in.mailer, in.publisher, conf, logger)
	validate, translator := newValidator(logger)

	// =========================================================================
	// Debug server
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Warn(fmt.Sprintf("debug server closed: %v", err))
		}
	}()

	// =========================================================================
	// API server

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		AlumniSvc:  alumniSvc,
		Validate:   validate,
		Translator: translator,
	})
	go server.Start()

	select {
	case err = <-server.Errors():
		return errors.Wrap(err, "server error")

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
	}
	return nil
}
