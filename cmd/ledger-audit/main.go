package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Maghvendra09/appointment-booking/internal/audit"
	bookingsrepository "github.com/Maghvendra09/appointment-booking/internal/bookings/repository"
	slotsrepository "github.com/Maghvendra09/appointment-booking/internal/slots/repository"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
)

const ServiceName = "ledger-audit"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	auditor := audit.NewAuditor(
		slotsrepository.NewMongoSlotRepository(cfg),
		bookingsrepository.NewMongoBookingRepository(cfg),
		cfg.Log,
	)

	var locker audit.Locker = audit.LocalLocker{}
	if cfg.Client.Redis != nil {
		locker = audit.NewRedisLocker(cfg.Client.Redis)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := audit.NewWorker(auditor, locker, cfg.AuditCronSpec, cfg.Log)
	if len(os.Args) > 1 && os.Args[1] == "once" {
		worker.RunOnce(ctx)
		return
	}

	if err := worker.Start(ctx); err != nil {
		cfg.Log.Error("Failed to start ledger audit worker", "error", err)
		return
	}

	<-ctx.Done()
	cfg.Log.Info("Shutdown signal received")
	worker.Stop()
}
