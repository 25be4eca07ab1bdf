package sqlxrepo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimucloud/dawati/core/resource"
)

type recordRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *sqlx.DB) resource.Repository {
	return &recordRepository{db: db}
}

// dbRecord mirrors resource.Record with leave_history as raw JSONB.
type dbRecord struct {
	ID            string          `db:"id"`
	Kind          resource.Kind   `db:"kind"`
	Name          string          `db:"name"`
	Email         string          `db:"email"`
	Role          string          `db:"role"`
	WorkStartedAt null.Time       `db:"work_started_at"`
	WorkEndedAt   null.Time       `db:"work_ended_at"`
	FrozenAt      null.Time       `db:"frozen_at"`
	LeaveHistory  json.RawMessage `db:"leave_history"`
	SoftDeleted   bool            `db:"soft_deleted"`
	CreatedAt     null.Time       `db:"created_at"`
	UpdatedAt     null.Time       `db:"updated_at"`
}

func toDB(rec resource.Record) (dbRecord, error) {
	history := rec.LeaveHistory
	if history == nil {
		history = []resource.LeaveEntry{}
	}
	rawHistory, err := json.Marshal(history)
	if err != nil {
		return dbRecord{}, errors.Wrap(err, "encoding leave history")
	}
	return dbRecord{
		ID:            rec.ID,
		Kind:          rec.Kind,
		Name:          rec.Name,
		Email:         rec.Email,
		Role:          rec.Role,
		WorkStartedAt: rec.WorkStartedAt,
		WorkEndedAt:   rec.WorkEndedAt,
		FrozenAt:      rec.FrozenAt,
		LeaveHistory:  rawHistory,
		SoftDeleted:   rec.SoftDeleted,
		CreatedAt:     null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}, nil
}

func fromDB(row dbRecord) (resource.Record, error) {
	rec := resource.Record{
		ID:            row.ID,
		Kind:          row.Kind,
		Name:          row.Name,
		Email:         row.Email,
		Role:          row.Role,
		WorkStartedAt: row.WorkStartedAt,
		WorkEndedAt:   row.WorkEndedAt,
		FrozenAt:      row.FrozenAt,
		SoftDeleted:   row.SoftDeleted,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if len(row.LeaveHistory) > 0 {
		if err := json.Unmarshal(row.LeaveHistory, &rec.LeaveHistory); err != nil {
			return resource.Record{}, errors.Wrap(err, "decoding leave history")
		}
	}
	return rec, nil
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec resource.Record) (resource.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row, err := toDB(rec)
	if err != nil {
		return resource.Record{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO records (id, kind, name, email, role, work_started_at, work_ended_at, frozen_at, leave_history, soft_deleted, created_at, updated_at)
		VALUES (:id, :kind, :name, :email, :role, :work_started_at, :work_ended_at, :frozen_at, :leave_history, :soft_deleted, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return resource.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo *recordRepository) GetRecord(ctx context.Context, kind resource.Kind, id string) (resource.Record, error) {
	var row dbRecord
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM records WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resource.Record{}, resource.ErrNotFound
		}
		return resource.Record{}, errors.Wrap(err, "getting record")
	}
	return fromDB(row)
}

func (repo *recordRepository) QueryRecords(ctx context.Context, filter resource.QueryFilter) ([]resource.Record, error) {
	query := `SELECT * FROM records WHERE kind = $1`
	args := []interface{}{filter.Kind}
	if !filter.IncludeDeleted {
		query += ` AND NOT soft_deleted`
	}
	if filter.Search != "" {
		query += ` AND name ILIKE '%' || $2 || '%'`
		args = append(args, filter.Search)
	}
	query += ` ORDER BY created_at`

	var rows []dbRecord
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	records := make([]resource.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromDB(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo *recordRepository) UpdateRecord(ctx context.Context, rec resource.Record) (resource.Record, error) {
	row, err := toDB(rec)
	if err != nil {
		return resource.Record{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE records
		SET name = :name, email = :email, work_started_at = :work_started_at, work_ended_at = :work_ended_at,
			frozen_at = :frozen_at, leave_history = :leave_history, soft_deleted = :soft_deleted,
			updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return resource.Record{}, errors.Wrap(err, "updating record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return resource.Record{}, resource.ErrNotFound
	}
	return rec, nil
}
