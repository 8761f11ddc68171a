package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gameroom-backend/internal/models"
)

const ownerColumns = `id, email, password, name, role, has_sms_feature, reporting_password_hash, created_at, updated_at`

func (s *Store) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	var owner models.Owner
	err := s.q.GetContext(ctx, &owner, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &owner, nil
}

func (s *Store) GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	var owner models.Owner
	err := s.q.GetContext(ctx, &owner, `SELECT `+ownerColumns+` FROM owners WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &owner, nil
}

func (s *Store) CreateOwner(ctx context.Context, owner *models.Owner) error {
	now := time.Now().Unix()
	owner.CreatedAt = now
	owner.UpdatedAt = now
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO owners (id, email, password, name, role, has_sms_feature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		owner.ID, owner.Email, owner.Password, owner.Name, owner.Role, owner.HasSMSFeature, now, now)
	return err
}

// EnsureOwner creates the owner row for an externally authenticated identity
// on first sight. The row has no password, so password login stays closed to
// it. When email is blank or already belongs to another owner the id is used
// as the address.
func (s *Store) EnsureOwner(ctx context.Context, id, email string) error {
	now := time.Now().Unix()
	candidates := []string{id}
	if email = strings.TrimSpace(email); email != "" && !strings.EqualFold(email, id) {
		candidates = []string{email, id}
	}
	for _, addr := range candidates {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO owners (id, email, password, name, role, has_sms_feature, created_at, updated_at)
			VALUES ($1, $2, '', $2, $3, FALSE, $4, $4)
			ON CONFLICT DO NOTHING`,
			id, addr, models.RoleOwner, now)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		var exists bool
		if err := s.q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM owners WHERE id = $1)`, id); err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	return fmt.Errorf("owner %s: email %q already in use", id, email)
}

func (s *Store) UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE owners SET password = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) UpdateReportingPassword(ctx context.Context, id string, hash *string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE owners SET reporting_password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListOwnerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.q.SelectContext(ctx, &ids, `SELECT id FROM owners ORDER BY created_at`); err != nil {
		return nil, err
	}
	return ids, nil
}
