package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gameroom-backend/internal/models"
)

const (
	customerColumns = `owner_id, phone, name, id_image_url, created_at`
	visitColumns    = `id, owner_id, phone, name, id_image_url, match_amount, machine_number, visited_at, last_used`
)

func (s *Store) GetCustomer(ctx context.Context, ownerID, phone string) (*models.Customer, error) {
	var c models.Customer
	err := s.q.GetContext(ctx, &c,
		`SELECT `+customerColumns+` FROM customers WHERE owner_id = $1 AND phone = $2`, ownerID, phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CreateCustomer inserts the profile unless one already exists for the phone.
// It reports whether a row was created.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO customers (owner_id, phone, name, id_image_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, phone) DO NOTHING`,
		c.OwnerID, c.Phone, c.Name, c.IDImageURL, c.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListCustomers(ctx context.Context, ownerID, search string) ([]models.Customer, error) {
	customers := []models.Customer{}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if search != "" {
		query += ` AND (phone LIKE $2 OR name ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	if err := s.q.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) ListCustomerPhones(ctx context.Context, ownerID string) ([]string, error) {
	var phones []string
	err := s.q.SelectContext(ctx, &phones,
		`SELECT phone FROM customers WHERE owner_id = $1 ORDER BY phone`, ownerID)
	if err != nil {
		return nil, err
	}
	return phones, nil
}

func (s *Store) GetLatestVisit(ctx context.Context, ownerID, phone string) (*models.Visit, error) {
	var v models.Visit
	err := s.q.GetContext(ctx, &v, `
		SELECT `+visitColumns+` FROM visits
		WHERE owner_id = $1 AND phone = $2
		ORDER BY visited_at DESC
		LIMIT 1`, ownerID, phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *Store) InsertVisit(ctx context.Context, v *models.Visit) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO visits (id, owner_id, phone, name, id_image_url, match_amount, machine_number, visited_at, last_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.OwnerID, v.Phone, v.Name, v.IDImageURL, v.MatchAmount, v.MachineNumber, v.Timestamp, v.LastUsed)
	return err
}

// ListVisitsBetween returns visits with from <= visited_at <= to, newest first
func (s *Store) ListVisitsBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Visit, error) {
	visits := []models.Visit{}
	err := s.q.SelectContext(ctx, &visits, `
		SELECT `+visitColumns+` FROM visits
		WHERE owner_id = $1 AND visited_at BETWEEN $2 AND $3
		ORDER BY visited_at DESC`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return visits, nil
}

// SumMatchedBetween sums match amounts of visits in the inclusive window
func (s *Store) SumMatchedBetween(ctx context.Context, ownerID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(match_amount), 0) FROM visits
		WHERE owner_id = $1 AND visited_at BETWEEN $2 AND $3`, ownerID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
