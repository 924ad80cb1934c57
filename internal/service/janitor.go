package service

import (
	"context"
	"log/slog"
	"time"

	"hardmine/internal/logger"

	"github.com/robfig/cron/v3"
)

// Janitor runs periodic hygiene jobs on a cron schedule (with seconds field).
type Janitor struct {
	cron      *cron.Cron
	powerUps  *PowerUpService
	retention time.Duration
	log       *slog.Logger
}

func NewJanitor(powerUps *PowerUpService, retention time.Duration) *Janitor {
	log := logger.With("component", "janitor")
	return &Janitor{
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{log}))),
		powerUps:  powerUps,
		retention: retention,
		log:       log,
	}
}

// Schedule registers the purge job.
func (j *Janitor) Schedule(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-j.retention)
		n, err := j.powerUps.Purge(rctx, cutoff)
		if err != nil {
			j.log.Warn("power-up purge failed", "error", err)
			return
		}
		if n > 0 {
			j.log.Info("purged expired power-ups", "rows", n, "cutoff", cutoff)
		}
	})
	return err
}

func (j *Janitor) Start() {
	j.cron.Start()
	j.log.Info("janitor started")
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
