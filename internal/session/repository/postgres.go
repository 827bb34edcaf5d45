package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"session-control-plane/internal/session/domain"
)

const sessionColumns = `id, subject_id, token_id, token_secret_hash, correlation_id,
	issued_at, expires_at, last_activity_at, created_by_ip,
	client_type, device_model, os_name, os_version, user_agent,
	revoked_at, revoked_reason, replaced_by`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists the session. The session must have ID set. Returns
// ErrConflict if the token id or correlation id is already taken.
func (r *PostgresRepository) Insert(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, subject_id, token_id, token_secret_hash, correlation_id,
			issued_at, expires_at, last_activity_at, created_by_ip,
			client_type, device_model, os_name, os_version, user_agent,
			revoked_at, revoked_reason, replaced_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.ID, s.SubjectID, s.TokenID, s.TokenSecretHash, s.CorrelationID,
		s.IssuedAt, s.ExpiresAt, timeToNullTime(s.LastActivityAt), nullIfEmpty(s.CreatedByIP),
		nullIfEmpty(s.Device.ClientType), nullIfEmpty(s.Device.DeviceModel), nullIfEmpty(s.Device.OSName),
		nullIfEmpty(s.Device.OSVersion), nullIfEmpty(s.Device.UserAgent),
		timeToNullTime(s.RevokedAt), nullIfEmpty(string(s.RevokedReason)), nullIfEmpty(s.ReplacedBy),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

// FindActiveByTokenID returns the unrevoked, unexpired session holding the
// token id, or nil if there is none.
func (r *PostgresRepository) FindActiveByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		tokenID, time.Now().UTC(),
	)
	return scanSession(row)
}

// FindActiveByCorrelationID returns the unrevoked, unexpired session holding
// the correlation id, or nil if there is none.
func (r *PostgresRepository) FindActiveByCorrelationID(ctx context.Context, correlationID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE correlation_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		correlationID, time.Now().UTC(),
	)
	return scanSession(row)
}

// ListActiveBySubject returns the subject's active sessions, newest first.
func (r *PostgresRepository) ListActiveBySubject(ctx context.Context, subjectID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE subject_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY issued_at DESC`,
		subjectID, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RevokeIfActive revokes the session only if revoked_at is still null. The
// conditional update is the compare-and-set that decides rotation races:
// exactly one caller observes true.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string, at time.Time, reason domain.RevocationReason, replacedBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = $2, revoked_reason = $3, replaced_by = $4
		WHERE id = $1 AND revoked_at IS NULL`,
		id, at, string(reason), nullIfEmpty(replacedBy),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllActiveForSubject revokes every unrevoked session of the subject.
func (r *PostgresRepository) RevokeAllActiveForSubject(ctx context.Context, subjectID string, at time.Time, reason domain.RevocationReason) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = $2, revoked_reason = $3
		WHERE subject_id = $1 AND revoked_at IS NULL`,
		subjectID, at, string(reason),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchActivity sets the session's last-activity timestamp.
func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = $2 WHERE id = $1`,
		id, at,
	)
	return err
}

// DeleteExpired removes sessions whose expiry passed before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var lastActivity, revokedAt sql.NullTime
	var createdByIP, clientType, deviceModel, osName, osVersion, userAgent sql.NullString
	var revokedReason, replacedBy sql.NullString
	err := row.Scan(
		&s.ID, &s.SubjectID, &s.TokenID, &s.TokenSecretHash, &s.CorrelationID,
		&s.IssuedAt, &s.ExpiresAt, &lastActivity, &createdByIP,
		&clientType, &deviceModel, &osName, &osVersion, &userAgent,
		&revokedAt, &revokedReason, &replacedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.LastActivityAt = nullTimeToPtr(lastActivity)
	s.CreatedByIP = createdByIP.String
	s.Device = domain.DeviceInfo{
		ClientType:  clientType.String,
		DeviceModel: deviceModel.String,
		OSName:      osName.String,
		OSVersion:   osVersion.String,
		UserAgent:   userAgent.String,
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.RevokedReason = domain.RevocationReason(revokedReason.String)
	s.ReplacedBy = replacedBy.String
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
