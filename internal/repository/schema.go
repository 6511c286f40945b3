package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS patients (
	id         VARCHAR(50) PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	age        INT NOT NULL,
	gender     VARCHAR(20),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id            VARCHAR(50) PRIMARY KEY,
	patient_id    VARCHAR(50) NOT NULL REFERENCES patients (id),
	session_id    VARCHAR(50),
	summary       TEXT,
	health_status VARCHAR(50) NOT NULL,
	report_date   TIMESTAMPTZ NOT NULL,
	report_url    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema crea las tablas si no existen y siembra datos de ejemplo
// cuando la base esta vacia.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return err
	}
	return seedSampleData(ctx, pool)
}

func seedSampleData(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	const seed = `
	INSERT INTO patients (id, name, age, gender) VALUES
		('p001', 'Alice Smith', 29, 'Female'),
		('p002', 'Bob Johnson', 54, 'Male'),
		('p003', 'Charlie Lee', 67, 'Male');

	INSERT INTO reports (id, patient_id, health_status, report_date) VALUES
		('r101', 'p001', 'Normal',    '2024-06-01'),
		('r102', 'p002', 'Follow-up', '2024-05-28'),
		('r103', 'p003', 'Critical',  '2024-05-25'),
		('r104', 'p002', 'Normal',    '2024-04-15'),
		('r105', 'p003', 'Follow-up', '2024-04-10');
	`
	_, err := pool.Exec(ctx, seed)
	return err
}
