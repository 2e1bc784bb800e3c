package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/arden-atelier/orderdesk/internal/app"
	"github.com/arden-atelier/orderdesk/internal/config"
	"github.com/arden-atelier/orderdesk/internal/db"
	"github.com/arden-atelier/orderdesk/internal/logging"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
)

type demoOrder struct {
	customer string
	phone    string
	dueIn    int
	status   orders.Status
	deposit  int64
	items    []orders.NewOrderItem
}

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	q := store.New(pool)
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: "text"}, os.Stderr)
	engine := app.NewEngine(cfg, q, logger)

	demo := []demoOrder{
		{
			customer: "Nguyen Thi Lan", phone: "0901234567", dueIn: 1, status: orders.StatusSewing, deposit: 500000,
			items: []orders.NewOrderItem{
				item("Ao dai lua", "do", "M", 2, 850000),
				item("Khan choang", "trang", "", 2, 120000),
			},
		},
		{
			customer: "Tran Van Minh", phone: "0912345678", dueIn: -2, status: orders.StatusFinishing, deposit: 0,
			items: []orders.NewOrderItem{item("Vest nam", "xam", "L", 1, 2400000)},
		},
		{
			customer: "Le Hoang Anh", dueIn: 6, status: orders.StatusApproved, deposit: 1000000,
			items: []orders.NewOrderItem{item("Dong phuc", "xanh", "S", 40, 180000)},
		},
	}

	created := 0
	for _, d := range demo {
		customerID, _, err := engine.Customers.Resolve(ctx, d.customer, d.phone)
		if err != nil {
			log.Fatalf("resolve customer %s: %v", d.customer, err)
		}
		due := orders.DateOnly(cfg.Now(), cfg.Location).AddDate(0, 0, d.dueIn)
		order, added, err := engine.CreateOrder(ctx, orders.OrderDraft{
			CustomerID:    customerID,
			DueDate:       &due,
			Status:        d.status,
			DepositAmount: decimal.NewFromInt(d.deposit),
			Note:          "demo",
			Items:         d.items,
		})
		if err != nil {
			log.Fatalf("create order for %s: %v", d.customer, err)
		}
		created++
		fmt.Printf("order %s for %s (%d items)\n", order.DisplayCode(), d.customer, added)
	}

	fmt.Printf("Seed completed. Orders=%d\n", created)
}

func item(product, color, size string, qty int64, price int64) orders.NewOrderItem {
	it := orders.NewOrderItem{
		ProductName: product,
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(price),
	}
	if color != "" {
		it.Color = &color
	}
	if size != "" {
		it.Size = &size
	}
	return it
}
