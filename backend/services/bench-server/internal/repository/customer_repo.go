package repository

import (
	"context"
	"database/sql"
	"errors"

	"cellbench/backend/services/bench-server/internal/models"
)

// CustomerRepository handles persistence of customers.
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository returns repository.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a customer and fills in its id.
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	const query = `
		INSERT INTO customers (name, code, contact_email, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		c.Name,
		c.Code,
		c.ContactEmail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID fetches one customer.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	const query = `
		SELECT id, name, code, contact_email, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Code,
		&c.ContactEmail,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns customers ordered by name.
func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	const query = `
		SELECT id, name, code, contact_email, created_at, updated_at
		FROM customers
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Code,
			&c.ContactEmail,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// Update rewrites the mutable fields of a customer.
func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	const query = `
		UPDATE customers
		SET name = $2,
		    code = $3,
		    contact_email = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Code, c.ContactEmail)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a customer.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
