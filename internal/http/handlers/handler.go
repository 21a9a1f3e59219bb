package handlers

import (
	"dinetrack-ops-service/internal/billing"
	"dinetrack-ops-service/internal/branches"
	"dinetrack-ops-service/internal/catalog"
	"dinetrack-ops-service/internal/config"
	"dinetrack-ops-service/internal/orders"
	"dinetrack-ops-service/internal/queue"
	"dinetrack-ops-service/internal/reservations"
	"dinetrack-ops-service/internal/storage"
	"dinetrack-ops-service/internal/tables"
	"dinetrack-ops-service/internal/ws"

	"go.uber.org/zap"
)

type Handler struct {
	Tables       *tables.Registry
	Reservations *reservations.Ledger
	Catalog      *catalog.Store
	Orders       *orders.Engine
	Billing      *billing.Aggregator
	Branches     *branches.Store

	Objects *storage.ObjectStore
	Queue   *queue.Client
	WS      *ws.Server
	Logger  *zap.Logger
	Config  config.Config
}
