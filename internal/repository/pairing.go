package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
)

type PairingSessionRepository interface {
	FindByID(ctx context.Context, id, ownerUserID string) (*model.PairingSession, error)
	FindWaitingByCode(ctx context.Context, code string) (*model.PairingSession, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, params model.CreatePairingSessionParams) (*model.PairingSession, error)
	ExpireAllForOwner(ctx context.Context, ownerUserID string) (int64, error)
	MarkPaired(ctx context.Context, id, controllerDeviceID string) (bool, error)
	MarkExpired(ctx context.Context, id string) error
	TouchHeartbeat(ctx context.Context, id, ownerUserID string) error
	SetPlaying(ctx context.Context, id, ownerUserID string, playing bool) (bool, error)
	SeekTo(ctx context.Context, id, ownerUserID string, seconds float64) (bool, error)
	LoadVideo(ctx context.Context, id, ownerUserID string, videoID int64) (bool, error)
	LoadClip(ctx context.Context, id, ownerUserID string, clipID int64) (bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type pairingSessionRepo struct {
	db *sqlx.DB
}

func NewPairingSessionRepository(db *sqlx.DB) PairingSessionRepository {
	return &pairingSessionRepo{db: db}
}

func (r *pairingSessionRepo) FindByID(ctx context.Context, id, ownerUserID string) (*model.PairingSession, error) {
	var session model.PairingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM pairing_sessions
		WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *pairingSessionRepo) FindWaitingByCode(ctx context.Context, code string) (*model.PairingSession, error) {
	var session model.PairingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM pairing_sessions
		WHERE session_code = $1
		AND status = 'waiting'
		AND expires_at > NOW()
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CodeInUse reports whether a live session already holds the code. Codes
// of expired sessions are free for reuse.
func (r *pairingSessionRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM pairing_sessions
		WHERE session_code = $1
		AND status != 'expired'
		AND expires_at > NOW()
	`, code)
	return count > 0, err
}

func (r *pairingSessionRepo) Create(ctx context.Context, params model.CreatePairingSessionParams) (*model.PairingSession, error) {
	var session model.PairingSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO pairing_sessions (session_code, owner_user_id, viewer_device_id, expires_at, last_heartbeat)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING *
	`, params.SessionCode, params.OwnerUserID, params.ViewerDeviceID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *pairingSessionRepo) ExpireAllForOwner(ctx context.Context, ownerUserID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			status = 'expired',
			updated_at = NOW()
		WHERE owner_user_id = $1 AND status != 'expired'
	`, ownerUserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingSessionRepo) MarkPaired(ctx context.Context, id, controllerDeviceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			status = 'paired',
			controller_device_id = $2,
			paired_at = NOW(),
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'waiting' AND expires_at > NOW()
	`, id, controllerDeviceID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *pairingSessionRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			status = 'expired',
			updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *pairingSessionRepo) TouchHeartbeat(ctx context.Context, id, ownerUserID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		AND status != 'expired'
		AND expires_at > NOW()
	`, id, ownerUserID)
	return err
}

func (r *pairingSessionRepo) SetPlaying(ctx context.Context, id, ownerUserID string, playing bool) (bool, error) {
	command := model.CommandPause
	if playing {
		command = model.CommandPlay
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			is_playing = $3,
			last_command = $4,
			status = CASE WHEN status IN ('paired', 'active') THEN 'active' ELSE status END,
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		AND status != 'expired'
		AND expires_at > NOW()
	`, id, ownerUserID, playing, string(command))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *pairingSessionRepo) SeekTo(ctx context.Context, id, ownerUserID string, seconds float64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			playback_time = $3,
			last_command = 'seek',
			status = CASE WHEN status IN ('paired', 'active') THEN 'active' ELSE status END,
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		AND status != 'expired'
		AND expires_at > NOW()
	`, id, ownerUserID, seconds)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *pairingSessionRepo) LoadVideo(ctx context.Context, id, ownerUserID string, videoID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			current_video_id = $3,
			current_clip_id = NULL,
			playback_time = 0,
			last_command = 'load_video',
			status = CASE WHEN status IN ('paired', 'active') THEN 'active' ELSE status END,
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		AND status != 'expired'
		AND expires_at > NOW()
	`, id, ownerUserID, videoID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *pairingSessionRepo) LoadClip(ctx context.Context, id, ownerUserID string, clipID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			current_clip_id = $3,
			playback_time = 0,
			last_command = 'load_clip',
			status = CASE WHEN status IN ('paired', 'active') THEN 'active' ELSE status END,
			last_heartbeat = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
		AND status != 'expired'
		AND expires_at > NOW()
	`, id, ownerUserID, clipID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *pairingSessionRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			status = 'expired',
			updated_at = NOW()
		WHERE status != 'expired' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingSessionRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_sessions
		WHERE status = 'expired' AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
