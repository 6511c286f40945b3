package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"care-relay/internal/domain"
)

type ReportRepository interface {
	Save(ctx context.Context, report domain.Report) error
	GetByID(ctx context.Context, id string) (domain.Report, error)
	ListByPatientID(ctx context.Context, patientID string) ([]domain.Report, error)
}

type PgReportRepository struct {
	pool *pgxpool.Pool
}

func NewPgReportRepository(pool *pgxpool.Pool) *PgReportRepository {
	return &PgReportRepository{pool: pool}
}

func (r *PgReportRepository) Save(ctx context.Context, report domain.Report) error {
	const query = `
		INSERT INTO reports (id, patient_id, session_id, summary, health_status, report_date, report_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.PatientID,
		report.SessionID,
		report.Summary,
		report.HealthStatus,
		report.ReportDate,
		report.ReportURL,
		report.CreatedAt,
	)
	return err
}

func (r *PgReportRepository) GetByID(ctx context.Context, id string) (domain.Report, error) {
	const query = `
		SELECT id, patient_id, COALESCE(session_id, ''), COALESCE(summary, ''), health_status,
		       report_date, COALESCE(report_url, ''), created_at
		FROM reports
		WHERE id = $1
	`
	var report domain.Report
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.PatientID,
		&report.SessionID,
		&report.Summary,
		&report.HealthStatus,
		&report.ReportDate,
		&report.ReportURL,
		&report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	return report, err
}

// ListByPatientID devuelve el timeline de reportes, del mas reciente
// al mas antiguo.
func (r *PgReportRepository) ListByPatientID(ctx context.Context, patientID string) ([]domain.Report, error) {
	const query = `
		SELECT id, patient_id, COALESCE(session_id, ''), COALESCE(summary, ''), health_status,
		       report_date, COALESCE(report_url, ''), created_at
		FROM reports
		WHERE patient_id = $1
		ORDER BY report_date DESC
	`
	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var report domain.Report
		err = rows.Scan(
			&report.ID,
			&report.PatientID,
			&report.SessionID,
			&report.Summary,
			&report.HealthStatus,
			&report.ReportDate,
			&report.ReportURL,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
