package gradewatch

import (
	"context"
	"database/sql"
	"time"

	"obswatch/lib/scrapers/obs"
	"obswatch/services/gradewatch/db"

	"go.opentelemetry.io/otel/codes"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store persists the last committed grade snapshot. the snapshot is
// replaced wholesale inside one transaction so an interrupted cycle can
// never leave a half-written state behind.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Load(ctx context.Context) (obs.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "store:Load")
	defer span.End()

	rows, err := s.qry.GetGradeRecords(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read grade records")
		return nil, err
	}

	snapshot := obs.Snapshot{}
	for _, r := range rows {
		record := obs.Record{
			Course: r.Course,
			Name:   r.Name,
			Exam:   r.Exam,
			Score:  r.Score,
			SeenAt: time.Unix(r.SeenAt, 0),
		}
		snapshot[record.Key()] = record
	}
	return snapshot, nil
}

func (s Store) Commit(ctx context.Context, snapshot obs.Snapshot) error {
	ctx, span := tracer.Start(ctx, "store:Commit")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin tx")
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteGradeRecords(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to clear previous snapshot")
		return err
	}

	for _, record := range snapshot {
		err := txqry.CreateGradeRecord(ctx, db.CreateGradeRecordParams{
			Course: record.Course,
			Exam:   record.Exam,
			Name:   record.Name,
			Score:  record.Score,
			SeenAt: record.SeenAt.Unix(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert grade record")
			return err
		}
	}

	return tx.Commit()
}
