package models

import "time"

// Customer owns batteries that come through the bench.
type Customer struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Work order statuses.
const (
	WorkOrderOpen      = "open"
	WorkOrderInProcess = "in_process"
	WorkOrderComplete  = "complete"
	WorkOrderCancelled = "cancelled"
)

// WorkOrder groups the batteries a customer sent in together.
type WorkOrder struct {
	ID          int64     `db:"id" json:"id"`
	OrderNumber string    `db:"order_number" json:"order_number"`
	CustomerID  int64     `db:"customer_id" json:"customer_id"`
	Status      string    `db:"status" json:"status"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// WorkOrderItem is one physical battery within a work order.
type WorkOrderItem struct {
	ID            int64     `db:"id" json:"id"`
	WorkOrderID   int64     `db:"work_order_id" json:"work_order_id"`
	BatterySerial string    `db:"battery_serial" json:"battery_serial"`
	PartNumber    string    `db:"part_number" json:"part_number"`
	Status        string    `db:"status" json:"status"`
	StationID     *int      `db:"station_id" json:"station_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
