// Package orders assembles carts into durable orders and owns the single
// write path for order status.
package orders

import (
	"time"

	"github.com/Stephi-25/Odjassa/internal/config"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/inventory"
	"github.com/Stephi-25/Odjassa/internal/metrics"
	"go.uber.org/zap"
)

// DB is the pool the service reads from and opens transactions on.
type DB interface {
	database.Beginner
	database.DBTX
}

type Service struct {
	db      DB
	guard   *inventory.Guard
	txOpts  database.TxOptions
	cfg     config.OrdersConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db DB, guard *inventory.Guard, txOpts database.TxOptions, cfg config.OrdersConfig, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		guard:   guard,
		txOpts:  txOpts,
		cfg:     cfg,
		logger:  logger.Named("orders"),
		metrics: m,
		now:     time.Now,
	}
}
