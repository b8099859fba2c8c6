package priorauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priorauth/priorauth/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed authorization repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const authCols = `id, patient_id, provider_id, payer_id,
	icd_code, icd_description, cpt_code, cpt_description, cpt_requires_prior_auth,
	clinical_notes, clinical_documented_by, clinical_supporting_document, clinical_documented_at,
	status, required_response_by, version_id, created_at, updated_at`

const transitionCols = `id, request_id, from_status, to_status, transitioned_by, denial_reason, notes, transitioned_at`

func scanAuth(row pgx.Row) (*AuthorizationRequest, error) {
	var a AuthorizationRequest
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.PayerID,
		&a.ICDCode.Code, &a.ICDCode.Description,
		&a.CPTCode.Code, &a.CPTCode.Description, &a.CPTCode.RequiresPriorAuth,
		&a.Justification.Notes, &a.Justification.DocumentedBy,
		&a.Justification.SupportingDocumentRef, &a.Justification.DocumentedAt,
		&a.Status, &a.RequiredResponseBy, &a.VersionID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "prior authorization request", ID: a.ID.String()}
	}
	return &a, err
}

func (r *repoPG) Add(ctx context.Context, a *AuthorizationRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	a.VersionID = 1
	_, err = tx.Exec(ctx, `
		INSERT INTO prior_authorization_request (id, patient_id, provider_id, payer_id,
			icd_code, icd_description, cpt_code, cpt_description, cpt_requires_prior_auth,
			clinical_notes, clinical_documented_by, clinical_supporting_document, clinical_documented_at,
			status, required_response_by, version_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.PatientID, a.ProviderID, a.PayerID,
		a.ICDCode.Code, a.ICDCode.Description,
		a.CPTCode.Code, a.CPTCode.Description, a.CPTCode.RequiresPriorAuth,
		a.Justification.Notes, a.Justification.DocumentedBy,
		a.Justification.SupportingDocumentRef, a.Justification.DocumentedAt,
		a.Status, a.RequiredResponseBy, a.VersionID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertTransitions(ctx, tx, a.History()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) Update(ctx context.Context, a *AuthorizationRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE prior_authorization_request
		SET status=$2, updated_at=$3, version_id=version_id+1
		WHERE id=$1 AND version_id=$4`,
		a.ID, a.Status, a.UpdatedAt, a.VersionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM prior_authorization_request WHERE id=$1)`, a.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return &NotFoundError{Resource: "prior authorization request", ID: a.ID.String()}
		}
		return ErrConflict
	}

	// Only the unsaved tail: persisted rows are immutable.
	var saved int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM status_transition WHERE request_id=$1`, a.ID).Scan(&saved); err != nil {
		return err
	}
	if err := insertTransitions(ctx, tx, a.NewTransitions(saved)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	a.VersionID++
	return nil
}

func insertTransitions(ctx context.Context, tx pgx.Tx, transitions []StatusTransition) error {
	for _, t := range transitions {
		_, err := tx.Exec(ctx, `
			INSERT INTO status_transition (id, request_id, from_status, to_status,
				transitioned_by, denial_reason, notes, transitioned_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.ID, t.RequestID, t.FromStatus, t.ToStatus,
			t.TransitionedBy, t.Reason, t.Notes, t.TransitionedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*AuthorizationRequest, error) {
	a, err := scanAuth(r.conn(ctx).QueryRow(ctx,
		`SELECT `+authCols+` FROM prior_authorization_request WHERE id = $1`, id))
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, &NotFoundError{Resource: "prior authorization request", ID: id.String()}
		}
		return nil, err
	}
	if err := r.loadHistory(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) ([]*AuthorizationRequest, error) {
	return r.queryMany(ctx,
		`SELECT `+authCols+` FROM prior_authorization_request WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
}

func (r *repoPG) GetPending(ctx context.Context) ([]*AuthorizationRequest, error) {
	return r.queryMany(ctx,
		`SELECT `+authCols+` FROM prior_authorization_request
		 WHERE status = ANY($1) ORDER BY required_response_by ASC`,
		[]Status{StatusSubmitted, StatusUnderReview, StatusAdditionalInfoRequested})
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*AuthorizationRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prior_authorization_request`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryMany(ctx,
		`SELECT `+authCols+` FROM prior_authorization_request ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) queryMany(ctx context.Context, sql string, args ...interface{}) ([]*AuthorizationRequest, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AuthorizationRequest
	for rows.Next() {
		a, err := scanAuth(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range items {
		if err := r.loadHistory(ctx, a); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *repoPG) loadHistory(ctx context.Context, a *AuthorizationRequest) error {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+transitionCols+` FROM status_transition WHERE request_id = $1 ORDER BY transitioned_at ASC, id ASC`,
		a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var transitions []StatusTransition
	for rows.Next() {
		var t StatusTransition
		if err := rows.Scan(&t.ID, &t.RequestID, &t.FromStatus, &t.ToStatus,
			&t.TransitionedBy, &t.Reason, &t.Notes, &t.TransitionedAt); err != nil {
			return err
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	a.RestoreHistory(transitions)
	return nil
}
