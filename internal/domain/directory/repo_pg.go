package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priorauth/priorauth/internal/domain/priorauth"
	"github.com/priorauth/priorauth/internal/platform/db"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Patient Repository --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, first_name, last_name, date_of_birth, member_id,
	contact_phone, contact_email, contact_fax, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.MemberID,
		&p.Contact.Phone, &p.Contact.Email, &p.Contact.Fax, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, member_id,
			contact_phone, contact_email, contact_fax)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.MemberID,
		p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "patient", ID: id.String()}
	}
	return p, err
}

func (r *patientRepoPG) GetByMemberID(ctx context.Context, memberID string) (*Patient, error) {
	p, err := scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE member_id = $1`, memberID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "patient", ID: memberID}
	}
	return p, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, date_of_birth=$4, member_id=$5,
			contact_phone=$6, contact_email=$7, contact_fax=$8, updated_at=NOW()
		WHERE id=$1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.MemberID,
		p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "patient", ID: p.ID.String()}
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "patient", ID: id.String()}
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// -- Provider Repository --

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepo(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pool: pool}
}

const providerCols = `id, name, npi, specialty,
	contact_phone, contact_email, contact_fax, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.NPI, &p.Specialty,
		&p.Contact.Phone, &p.Contact.Email, &p.Contact.Fax, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO provider (id, name, npi, specialty, contact_phone, contact_email, contact_fax)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.NPI, p.Specialty, p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, err := scanProvider(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "provider", ID: id.String()}
	}
	return p, err
}

func (r *providerRepoPG) GetByNPI(ctx context.Context, npi string) (*Provider, error) {
	p, err := scanProvider(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider WHERE npi = $1`, npi))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "provider", ID: npi}
	}
	return p, err
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE provider SET name=$2, npi=$3, specialty=$4,
			contact_phone=$5, contact_email=$6, contact_fax=$7, updated_at=NOW()
		WHERE id=$1`,
		p.ID, p.Name, p.NPI, p.Specialty, p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "provider", ID: p.ID.String()}
	}
	return nil
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "provider", ID: id.String()}
	}
	return nil
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx,
		`SELECT `+providerCols+` FROM provider ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// -- Payer Repository --

type payerRepoPG struct{ pool *pgxpool.Pool }

func NewPayerRepo(pool *pgxpool.Pool) PayerRepository {
	return &payerRepoPG{pool: pool}
}

const payerCols = `id, name, payer_code, standard_response_days,
	contact_phone, contact_email, contact_fax, created_at, updated_at`

func scanPayer(row pgx.Row) (*Payer, error) {
	var p Payer
	err := row.Scan(&p.ID, &p.Name, &p.PayerCode, &p.StandardResponseDays,
		&p.Contact.Phone, &p.Contact.Email, &p.Contact.Fax, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payerRepoPG) Create(ctx context.Context, p *Payer) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payer (id, name, payer_code, standard_response_days,
			contact_phone, contact_email, contact_fax)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.PayerCode, p.StandardResponseDays,
		p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	return err
}

func (r *payerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payer, error) {
	p, err := scanPayer(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+payerCols+` FROM payer WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "payer", ID: id.String()}
	}
	return p, err
}

func (r *payerRepoPG) GetByCode(ctx context.Context, code string) (*Payer, error) {
	p, err := scanPayer(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+payerCols+` FROM payer WHERE payer_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &priorauth.NotFoundError{Resource: "payer", ID: code}
	}
	return p, err
}

func (r *payerRepoPG) Update(ctx context.Context, p *Payer) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE payer SET name=$2, payer_code=$3, standard_response_days=$4,
			contact_phone=$5, contact_email=$6, contact_fax=$7, updated_at=NOW()
		WHERE id=$1`,
		p.ID, p.Name, p.PayerCode, p.StandardResponseDays,
		p.Contact.Phone, p.Contact.Email, p.Contact.Fax)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "payer", ID: p.ID.String()}
	}
	return nil
}

func (r *payerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM payer WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &priorauth.NotFoundError{Resource: "payer", ID: id.String()}
	}
	return nil
}

func (r *payerRepoPG) List(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM payer`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx,
		`SELECT `+payerCols+` FROM payer ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Payer
	for rows.Next() {
		p, err := scanPayer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
