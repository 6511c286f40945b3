package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"care-relay/internal/domain"
)

var ErrNotFound = errors.New("record not found")

type PatientRepository interface {
	ListWithLatestReport(ctx context.Context) ([]domain.PatientSummary, error)
	GetByID(ctx context.Context, id string) (domain.Patient, error)
}

type PgPatientRepository struct {
	pool *pgxpool.Pool
}

func NewPgPatientRepository(pool *pgxpool.Pool) *PgPatientRepository {
	return &PgPatientRepository{pool: pool}
}

// ListWithLatestReport devuelve todos los pacientes con su ultimo
// reporte (si existe), para la vista de tabla.
func (r *PgPatientRepository) ListWithLatestReport(ctx context.Context) ([]domain.PatientSummary, error) {
	const query = `
		SELECT
			p.id, p.name, p.age, p.gender, p.created_at,
			r.id, r.patient_id, r.summary, r.health_status, r.report_date, r.report_url, r.created_at
		FROM patients p
		LEFT JOIN LATERAL (
			SELECT id, patient_id, summary, health_status, report_date, report_url, created_at
			FROM reports
			WHERE patient_id = p.id
			ORDER BY report_date DESC
			LIMIT 1
		) r ON true
		ORDER BY r.report_date DESC NULLS LAST, p.name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PatientSummary
	for rows.Next() {
		var (
			s          domain.PatientSummary
			gender     *string
			reportID   *string
			patientID  *string
			summary    *string
			status     *string
			reportDate *time.Time
			reportURL  *string
			createdAt  *time.Time
		)
		err = rows.Scan(
			&s.ID, &s.Name, &s.Age, &gender, &s.CreatedAt,
			&reportID, &patientID, &summary, &status, &reportDate, &reportURL, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		if gender != nil {
			s.Gender = *gender
		}
		if reportID != nil {
			report := domain.Report{ID: *reportID, PatientID: s.ID}
			if summary != nil {
				report.Summary = *summary
			}
			if status != nil {
				report.HealthStatus = *status
			}
			if reportDate != nil {
				report.ReportDate = *reportDate
			}
			if reportURL != nil {
				report.ReportURL = *reportURL
			}
			if createdAt != nil {
				report.CreatedAt = *createdAt
			}
			s.LatestReport = &report
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgPatientRepository) GetByID(ctx context.Context, id string) (domain.Patient, error) {
	const query = `
		SELECT id, name, age, COALESCE(gender, ''), created_at
		FROM patients
		WHERE id = $1
	`
	var p domain.Patient
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{}, ErrNotFound
	}
	return p, err
}
