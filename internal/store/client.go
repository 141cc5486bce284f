package store

import (
	"context"
	"fmt"

	"practice-management-api/internal/model"
)

func (s *Store) CreateClient(ctx context.Context, c *model.Client) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO clients (id, name, email, approved, auto_invoice, rate)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Name, c.Email, c.Approved, c.AutoInvoice, c.Rate)
	if err != nil {
		return fmt.Errorf("store: create client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*model.Client, error) {
	c := &model.Client{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, approved, auto_invoice, rate, created_at
		 FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Approved, &c.AutoInvoice, &c.Rate, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: get client: %w", err)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, email, approved, auto_invoice, rate, created_at
		 FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list clients: %w", err)
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Approved, &c.AutoInvoice, &c.Rate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApproveClient opens the intake gate so the client can be booked.
func (s *Store) ApproveClient(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE clients SET approved = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: approve client: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("store: approve client: no row with id %s", id)
	}
	return nil
}
