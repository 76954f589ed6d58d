package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
	emailsvc "github.com/alumnihub/backend/services/email"
	eventsvc "github.com/alumnihub/backend/services/events"
	inmemcache "github.com/alumnihub/backend/storage/cache/inmem"
	rediscache "github.com/alumnihub/backend/storage/cache/redis"
	"github.com/alumnihub/backend/storage/database"
)

// infra holds the backing services picked by the configuration.
type infra struct {
	db        *sqlx.DB
	otpStore  alumni.OTPStore
	publisher core.EventPublisher
	mailer    core.EmailService

	closers []func() error
}

func setUpInfra(ctx context.Context, conf *core.Config, logger core.Logger) (*infra, error) {
	in := new(infra)
	var err error

	if in.db, err = setUpDB(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "setting up database")
	}
	in.closers = append(in.closers, in.db.Close)

	if conf.Redis.Address != "" {
		client, err := rediscache.Open(ctx, conf)
		if err != nil {
			in.close(logger)
			return nil, errors.Wrap(err, "connecting to redis")
		}
		in.closers = append(in.closers, client.Close)
		in.otpStore = rediscache.NewOTPStore(client)
	} else {
		logger.Warn("redis address not set: OTPs are kept in memory")
		in.otpStore = inmemcache.NewOTPStore()
	}

	if len(conf.Kafka.Brokers) > 0 {
		if in.publisher, err = eventsvc.NewKafkaPublisher(conf, logger); err != nil {
			in.close(logger)
			return nil, errors.Wrap(err, "connecting to kafka")
		}
	} else {
		in.publisher = eventsvc.NewLogPublisher(logger)
	}
	in.closers = append(in.closers, in.publisher.Close)

	if conf.Debug || conf.SendgridAPIKey == "" {
		in.mailer = emailsvc.NewConsoleService(conf, logger)
	} else {
		in.mailer = emailsvc.NewSendgridService(conf, logger)
	}
	return in, nil
}

// close releases the backing services in reverse order of acquisition.
func (in *infra) close(logger core.Logger) {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			logger.Error(fmt.Sprintf("closing backing service: %v", err), err)
		}
	}
	in.closers = nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db, conf); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
