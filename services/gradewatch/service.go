// Package gradewatch polls a university OBS portal for exam grades,
// diffs them against the last persisted snapshot and notifies about
// anything new.
package gradewatch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"obswatch/lib/captcha"
	"obswatch/lib/scrapers/obs"
	"obswatch/lib/telemetry"
	"obswatch/services/notify"
)

var tracer = telemetry.Tracer("obswatch.services.gradewatch")

type Options struct {
	BaseUrl  string
	Username string
	Password string
	Solver   captcha.Solver

	// login attempts per check, each with a fresh captcha. zero means
	// the scraper default.
	MaxLoginAttempts int
	// when true a grade whose score changed after being announced is
	// notified again instead of silently overwritten.
	RenotifyOnChange bool
}

type Service struct {
	store    Store
	notifier notify.Notifier
	opts     Options
}

func NewService(database *sql.DB, notifier notify.Notifier, opts Options) *Service {
	return &Service{
		store:    NewStore(database),
		notifier: notifier,
		opts:     opts,
	}
}

// Inspect logs into the portal, scrapes the grade table and returns
// both the full current snapshot and the records that are new relative
// to the persisted one. It does not notify and does not commit.
func (s *Service) Inspect(ctx context.Context) (obs.Snapshot, []obs.Record, error) {
	ctx, span := tracer.Start(ctx, "gradewatch:Inspect")
	defer span.End()

	previous, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load snapshot")
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	client, err := obs.NewClient(ctx, obs.ClientOptions{
		BaseUrl:          s.opts.BaseUrl,
		Solver:           s.opts.Solver,
		MaxLoginAttempts: s.opts.MaxLoginAttempts,
	})
	if err != nil {
		return nil, nil, err
	}
	err = client.Login(ctx, s.opts.Username, s.opts.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return nil, nil, err
	}

	page, err := client.Fetch(ctx, obs.GradesPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch grade page")
		return nil, nil, err
	}
	current, err := obs.ExtractGrades(ctx, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract grades")
		return nil, nil, err
	}

	fresh := Diff(previous, current, s.opts.RenotifyOnChange)

	span.SetAttributes(
		attribute.Int("snapshot_size", len(current)),
		attribute.Int("fresh_records", len(fresh)),
	)
	return current, fresh, nil
}

// Check runs one full poll cycle: scrape, diff, notify, commit. The
// snapshot is only committed after every notification went out, so a
// failed send means the same grades are re-notified on the next cycle.
func (s *Service) Check(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "gradewatch:Check")
	defer span.End()

	current, fresh, err := s.Inspect(ctx)
	if err != nil {
		return err
	}

	if len(fresh) > 0 {
		slog.InfoContext(ctx, "new grades found", slog.Int("count", len(fresh)))
		err = s.notifier.Send(ctx, notify.FormatGrades(fresh))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to send notification")
			return fmt.Errorf("sending notification: %w", err)
		}
	} else {
		slog.DebugContext(ctx, "no new grades")
	}

	err = s.store.Commit(ctx, current)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit snapshot")
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}
