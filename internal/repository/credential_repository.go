package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-wellbeing-api/internal/models"
)

// CredentialRepository looks up staff logins stored in the users table.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new instance of CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByUsername returns a credential by username.
func (r *CredentialRepository) FindByUsername(ctx context.Context, username string) (*models.Credential, error) {
	const query = `SELECT username, password_hash, role, active FROM users WHERE username = $1 LIMIT 1`
	var credential models.Credential
	if err := r.db.GetContext(ctx, &credential, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &credential, nil
}
