package repository

import (
	"context"
	"database/sql"
	"errors"

	"cellbench/backend/services/bench-server/internal/models"
)

// WorkOrderRepository handles persistence of work orders and their items.
type WorkOrderRepository struct {
	db *sql.DB
}

// NewWorkOrderRepository returns repository.
func NewWorkOrderRepository(db *sql.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// Create inserts a work order and fills in its id.
func (r *WorkOrderRepository) Create(ctx context.Context, wo *models.WorkOrder) error {
	const query = `
		INSERT INTO work_orders (order_number, customer_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	if wo.Status == "" {
		wo.Status = models.WorkOrderOpen
	}
	return r.db.QueryRowContext(ctx, query,
		wo.OrderNumber,
		wo.CustomerID,
		wo.Status,
		wo.Notes,
	).Scan(&wo.ID, &wo.CreatedAt, &wo.UpdatedAt)
}

// GetByID fetches one work order.
func (r *WorkOrderRepository) GetByID(ctx context.Context, id int64) (*models.WorkOrder, error) {
	const query = `
		SELECT id, order_number, customer_id, status, notes, created_at, updated_at
		FROM work_orders
		WHERE id = $1
	`
	var wo models.WorkOrder
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&wo.ID,
		&wo.OrderNumber,
		&wo.CustomerID,
		&wo.Status,
		&wo.Notes,
		&wo.CreatedAt,
		&wo.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// List returns work orders, newest first, optionally filtered by status.
func (r *WorkOrderRepository) List(ctx context.Context, status string, limit int) ([]models.WorkOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, order_number, customer_id, status, notes, created_at, updated_at
		FROM work_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.WorkOrder
	for rows.Next() {
		var wo models.WorkOrder
		if err := rows.Scan(
			&wo.ID,
			&wo.OrderNumber,
			&wo.CustomerID,
			&wo.Status,
			&wo.Notes,
			&wo.CreatedAt,
			&wo.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, wo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update rewrites the mutable fields of a work order.
func (r *WorkOrderRepository) Update(ctx context.Context, wo *models.WorkOrder) error {
	const query = `
		UPDATE work_orders
		SET order_number = $2,
		    customer_id = $3,
		    status = $4,
		    notes = $5,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, wo.ID, wo.OrderNumber, wo.CustomerID, wo.Status, wo.Notes)
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

// Delete removes a work order and its items.
func (r *WorkOrderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
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

// CreateItem inserts one battery into a work order.
func (r *WorkOrderRepository) CreateItem(ctx context.Context, item *models.WorkOrderItem) error {
	const query = `
		INSERT INTO work_order_items (work_order_id, battery_serial, part_number, status, station_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	if item.Status == "" {
		item.Status = "queued"
	}
	return r.db.QueryRowContext(ctx, query,
		item.WorkOrderID,
		item.BatterySerial,
		item.PartNumber,
		item.Status,
		item.StationID,
	).Scan(&item.ID, &item.CreatedAt)
}

// GetItem fetches one work order item.
func (r *WorkOrderRepository) GetItem(ctx context.Context, id int64) (*models.WorkOrderItem, error) {
	const query = `
		SELECT id, work_order_id, battery_serial, part_number, status, station_id, created_at
		FROM work_order_items
		WHERE id = $1
	`
	var item models.WorkOrderItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.WorkOrderID,
		&item.BatterySerial,
		&item.PartNumber,
		&item.Status,
		&item.StationID,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns the batteries in a work order.
func (r *WorkOrderRepository) ListItems(ctx context.Context, workOrderID int64) ([]models.WorkOrderItem, error) {
	const query = `
		SELECT id, work_order_id, battery_serial, part_number, status, station_id, created_at
		FROM work_order_items
		WHERE work_order_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.WorkOrderItem
	for rows.Next() {
		var item models.WorkOrderItem
		if err := rows.Scan(
			&item.ID,
			&item.WorkOrderID,
			&item.BatterySerial,
			&item.PartNumber,
			&item.Status,
			&item.StationID,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetItemStatus moves one battery through the shop flow.
func (r *WorkOrderRepository) SetItemStatus(ctx context.Context, id int64, status string, stationID *int) error {
	const query = `
		UPDATE work_order_items
		SET status = $2,
		    station_id = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, stationID)
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
