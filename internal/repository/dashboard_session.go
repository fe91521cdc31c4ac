package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/CrashMediaIT/acvideoreview-sync/internal/model"
)

// DashboardSessionRepository reads the login sessions issued by the main
// dashboard application. This service never writes to that table.
type DashboardSessionRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.DashboardSession, error)
}

type dashboardSessionRepo struct {
	db *sqlx.DB
}

func NewDashboardSessionRepository(db *sqlx.DB) DashboardSessionRepository {
	return &dashboardSessionRepo{db: db}
}

func (r *dashboardSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.DashboardSession, error) {
	var session model.DashboardSession
	err := r.db.GetContext(ctx, &session, `
		SELECT token_hash, user_id, user_name, role, expires_at
		FROM dashboard_sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
