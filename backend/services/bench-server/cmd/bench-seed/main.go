package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	libdb "cellbench/backend/libs/db"
	"cellbench/backend/libs/logging"
	"cellbench/backend/services/bench-server/internal/auth"
	"cellbench/backend/services/bench-server/internal/database"
	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
)

// bench-seed fills an empty database with development fixtures:
// operator accounts, the shop's regular customers, calibrated tools
// and a batch of open work orders with battery items.
func main() {
	var (
		dsn            string
		extraCustomers int
		orders         int
		itemsPerOrder  int
		adminPassword  string
		techPassword   string
	)

	flags := pflag.NewFlagSet("bench-seed", pflag.ExitOnError)
	flags.StringVar(&dsn, "dsn", os.Getenv("DATABASE_DSN"), "postgres DSN (defaults to DATABASE_DSN)")
	flags.IntVar(&extraCustomers, "extra-customers", 3, "generated customers on top of the fixed set")
	flags.IntVar(&orders, "orders", 5, "work orders to create")
	flags.IntVar(&itemsPerOrder, "items-per-order", 3, "battery items per work order")
	flags.StringVar(&adminPassword, "admin-password", "bench-admin", "password for the admin account")
	flags.StringVar(&techPassword, "tech-password", "bench-tech", "password for technician accounts")
	_ = flags.Parse(os.Args[1:])

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if strings.TrimSpace(dsn) == "" {
		logger.Fatal("postgres dsn required (--dsn or DATABASE_DSN)")
	}

	sqlDB, err := libdb.Open(libdb.Config{DSN: dsn})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.Migrate(sqlDB); err != nil {
		logger.Fatal("failed to migrate", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := &seeder{
		users:     repository.NewUserRepository(sqlDB),
		customers: repository.NewCustomerRepository(sqlDB),
		tools:     repository.NewToolRepository(sqlDB),
		orders:    repository.NewWorkOrderRepository(sqlDB),
		hasher:    auth.NewBcryptHasher(0),
		logger:    logger,
	}

	if err := s.seedUsers(ctx, adminPassword, techPassword); err != nil {
		logger.Fatal("seed users failed", zap.Error(err))
	}
	if err := s.seedCustomers(ctx, extraCustomers); err != nil {
		logger.Fatal("seed customers failed", zap.Error(err))
	}
	if err := s.seedTools(ctx); err != nil {
		logger.Fatal("seed tools failed", zap.Error(err))
	}
	if err := s.seedWorkOrders(ctx, orders, itemsPerOrder); err != nil {
		logger.Fatal("seed work orders failed", zap.Error(err))
	}

	logger.Info("seed complete")
}

type seeder struct {
	users     *repository.UserRepository
	customers *repository.CustomerRepository
	tools     *repository.ToolRepository
	orders    *repository.WorkOrderRepository
	hasher    auth.Hasher
	logger    *zap.Logger
}

func (s *seeder) seedUsers(ctx context.Context, adminPassword, techPassword string) error {
	accounts := []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPassword, "admin"},
		{"angelo", techPassword, "technician"},
		{"maria", techPassword, "technician"},
	}

	created := 0
	for _, a := range accounts {
		if _, err := s.users.GetByUsername(ctx, a.username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		hash, err := s.hasher.Hash(a.password)
		if err != nil {
			return err
		}
		user := &models.User{Username: a.username, PasswordHash: hash, Role: a.role}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		created++
	}

	s.logger.Info("users seeded", zap.Int("created", created))
	return nil
}

func (s *seeder) seedCustomers(ctx context.Context, extra int) error {
	fixed := []models.Customer{
		{Name: "TAP Air Portugal", Code: "TAP001", ContactEmail: "maintenance@tap.pt"},
		{Name: "SATA Air Azores", Code: "SATA001", ContactEmail: "mro@sata.pt"},
		{Name: "Ryanair", Code: "RYR001", ContactEmail: "components@ryanair.com"},
		{Name: "Portugalia Airlines", Code: "PGA001", ContactEmail: "tech@pga.pt"},
		{Name: "EasyJet Portugal", Code: "EZY001", ContactEmail: "engineering@easyjet.com"},
	}

	existing, err := s.customers.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Name] = true
	}

	created := 0
	for _, c := range fixed {
		if known[c.Name] {
			continue
		}
		customer := c
		if err := s.customers.Create(ctx, &customer); err != nil {
			return err
		}
		created++
	}

	for i := 0; i < extra; i++ {
		name := fmt.Sprintf("%s Aviation", faker.LastName())
		if known[name] {
			continue
		}
		known[name] = true
		code := strings.ToUpper(name[:3]) + "001"
		customer := models.Customer{Name: name, Code: code, ContactEmail: faker.Email()}
		if err := s.customers.Create(ctx, &customer); err != nil {
			return err
		}
		created++
	}

	s.logger.Info("customers seeded", zap.Int("created", created))
	return nil
}

func (s *seeder) seedTools(ctx context.Context) error {
	now := time.Now().UTC()
	fixed := []models.Tool{
		{AssetTag: "OT-CAL-0012", Name: "Fluke 87V Digital Multimeter", Category: "multimeter", CalibrationDue: now.AddDate(0, 9, 0), Active: true},
		{AssetTag: "OT-CAL-0013", Name: "Fluke 87V Digital Multimeter", Category: "multimeter", CalibrationDue: now.AddDate(0, 11, 0), Active: true},
		{AssetTag: "OT-CAL-0020", Name: "Fluke 1507 Insulation Tester", Category: "insulation_tester", CalibrationDue: now.AddDate(0, 6, 0), Active: true},
		{AssetTag: "OT-CAL-0031", Name: "CDI Torque Screwdriver 0-36 in-lb", Category: "torque_wrench", CalibrationDue: now.AddDate(1, 0, 0), Active: true},
		{AssetTag: "OT-CAL-0045", Name: "Fluke 52 II Dual Input Thermometer", Category: "thermometer", CalibrationDue: now.AddDate(0, 8, 0), Active: true},
		{AssetTag: "OT-CAL-0005", Name: "Fluke 87V Digital Multimeter", Category: "multimeter", CalibrationDue: now.AddDate(0, -2, 0), Active: true},
	}

	existing, err := s.tools.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t.AssetTag] = true
	}

	created := 0
	for _, t := range fixed {
		if known[t.AssetTag] {
			continue
		}
		tool := t
		if err := s.tools.Create(ctx, &tool); err != nil {
			return err
		}
		created++
	}

	s.logger.Info("tools seeded", zap.Int("created", created))
	return nil
}

func (s *seeder) seedWorkOrders(ctx context.Context, count, itemsPerOrder int) error {
	customers, err := s.customers.List(ctx)
	if err != nil {
		return err
	}
	if len(customers) == 0 {
		return errors.New("no customers to attach work orders to")
	}

	existing, err := s.orders.List(ctx, "", 1000)
	if err != nil {
		return err
	}
	next := len(existing) + 1

	partNumbers := []string{"3301-31", "3214-31", "301-3017"}

	created := 0
	for i := 0; i < count; i++ {
		order := models.WorkOrder{
			OrderNumber: fmt.Sprintf("OT-%d-%04d", time.Now().Year(), next+i),
			CustomerID:  customers[i%len(customers)].ID,
			Status:      models.WorkOrderOpen,
			Notes:       faker.Sentence(),
		}
		if err := s.orders.Create(ctx, &order); err != nil {
			return err
		}
		created++

		for j := 0; j < itemsPerOrder; j++ {
			item := models.WorkOrderItem{
				WorkOrderID:   order.ID,
				BatterySerial: fmt.Sprintf("D1347-%s", strings.ToUpper(uuid.NewString()[:8])),
				PartNumber:    partNumbers[(i+j)%len(partNumbers)],
			}
			if err := s.orders.CreateItem(ctx, &item); err != nil {
				return err
			}
		}
	}

	s.logger.Info("work orders seeded",
		zap.Int("created", created),
		zap.Int("items_each", itemsPerOrder))
	return nil
}
