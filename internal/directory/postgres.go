package directory

import (
	"context"
	"errors"
	"time"

	"senha-engine/internal/model"
	apperrors "senha-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads queue, branch and schedule rows owned by the admin service.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) GetQueue(ctx context.Context, queueID int64) (model.Queue, error) {
	query := `
		SELECT q.id, q.department_id, d.branch_id, b.institution_id,
			q.name, q.service, q.prefix, q.daily_limit, q.num_counters,
			q.avg_service_minutes
		FROM queues q
		JOIN departments d ON d.id = q.department_id
		JOIN branches b ON b.id = d.branch_id
		WHERE q.id = $1
	`

	var q model.Queue
	err := p.pool.QueryRow(ctx, query, queueID).Scan(
		&q.ID,
		&q.DepartmentID,
		&q.BranchID,
		&q.InstitutionID,
		&q.Name,
		&q.Service,
		&q.Prefix,
		&q.DailyLimit,
		&q.NumCounters,
		&q.AvgServiceMin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Queue{}, apperrors.ErrQueueNotFound
	}
	if err != nil {
		return model.Queue{}, err
	}
	return q, nil
}

func (p *Postgres) GetBranch(ctx context.Context, branchID int64) (model.Branch, error) {
	query := `
		SELECT id, institution_id, name, latitude, longitude
		FROM branches
		WHERE id = $1
	`

	var b model.Branch
	err := p.pool.QueryRow(ctx, query, branchID).Scan(
		&b.ID,
		&b.InstitutionID,
		&b.Name,
		&b.Latitude,
		&b.Longitude,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Branch{}, apperrors.ErrBranchNotFound
	}
	if err != nil {
		return model.Branch{}, err
	}
	return b, nil
}

func (p *Postgres) GetSchedule(ctx context.Context, queueID int64, weekday time.Weekday) (model.Schedule, bool, error) {
	query := `
		SELECT queue_id, weekday, open_time, end_time, is_closed
		FROM schedules
		WHERE queue_id = $1 AND weekday = $2
	`

	var s model.Schedule
	var wd int
	err := p.pool.QueryRow(ctx, query, queueID, int(weekday)).Scan(
		&s.QueueID,
		&wd,
		&s.OpenTime,
		&s.EndTime,
		&s.IsClosed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, err
	}
	s.Weekday = time.Weekday(wd)
	return s, true, nil
}

func (p *Postgres) ListQueuesNear(ctx context.Context, lat, lon, radiusKm float64, service string) ([]model.Queue, error) {
	// Haversine evaluated in SQL so the branch table can be indexed on
	// coordinates later without changing callers.
	query := `
		SELECT q.id, q.department_id, d.branch_id, b.institution_id,
			q.name, q.service, q.prefix, q.daily_limit, q.num_counters,
			q.avg_service_minutes
		FROM queues q
		JOIN departments d ON d.id = q.department_id
		JOIN branches b ON b.id = d.branch_id
		WHERE ($4 = '' OR q.service = $4)
		AND 2 * 6371 * asin(sqrt(
			pow(sin(radians(b.latitude - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(b.latitude)) *
			pow(sin(radians(b.longitude - $2) / 2), 2)
		)) <= $3
	`

	rows, err := p.pool.Query(ctx, query, lat, lon, radiusKm, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queues := make([]model.Queue, 0)
	for rows.Next() {
		var q model.Queue
		err := rows.Scan(
			&q.ID,
			&q.DepartmentID,
			&q.BranchID,
			&q.InstitutionID,
			&q.Name,
			&q.Service,
			&q.Prefix,
			&q.DailyLimit,
			&q.NumCounters,
			&q.AvgServiceMin,
		)
		if err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

func (p *Postgres) RecordServiceTime(ctx context.Context, queueID int64, minutes float64) error {
	query := `
		UPDATE queues
		SET service_samples = service_samples + 1,
			avg_service_minutes = (avg_service_minutes * service_samples + $2)
				/ (service_samples + 1),
			last_service_minutes = $2
		WHERE id = $1
	`

	tag, err := p.pool.Exec(ctx, query, queueID, minutes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrQueueNotFound
	}
	return nil
}
