// File: cron/worker.go
package cron

import (
	"context"
	"fmt"
	"time"

	"slotwise/config"
	bookingRepo "slotwise/database/repository/booking"
	slotRepo "slotwise/database/repository/slot"
	"slotwise/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeDeactivatePast = "slots:deactivate_past"
	TypeReconcile      = "slots:reconcile"
)

// StartMaintenanceWorker runs the asynq server and scheduler for the
// periodic slot maintenance tasks: deactivating slots whose window has
// passed, and repairing occupancy drift against the booking records
// (possible if the process dies between the occupancy increment and the
// booking insert).
func StartMaintenanceWorker(slots slotRepo.SlotRepository, bookings bookingRepo.BookingRepository) {
	logger := utils.GetLogger()

	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisWorkerDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDeactivatePast, handleDeactivatePast(slots))
	mux.HandleFunc(TypeReconcile, handleReconcile(slots, bookings))

	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Fatal("maintenance worker failed", zap.Error(err))
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	interval := config.AppConfig.MaintenanceIntervalM
	spec := fmt.Sprintf("@every %dm", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeDeactivatePast, nil)); err != nil {
		logger.Fatal("failed to register deactivation task", zap.Error(err))
	}
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeReconcile, nil)); err != nil {
		logger.Fatal("failed to register reconcile task", zap.Error(err))
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Fatal("maintenance scheduler failed", zap.Error(err))
		}
	}()
}

func handleDeactivatePast(slots slotRepo.SlotRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		expired, err := slots.ListActiveBefore(ctx, time.Now().Unix())
		if err != nil {
			return err
		}
		for i := range expired {
			if err := slots.Deactivate(ctx, expired[i].ID); err != nil {
				logger.Warn("failed to deactivate past slot",
					zap.String("slot", expired[i].ID), zap.Error(err))
				continue
			}
		}
		if len(expired) > 0 {
			logger.Info("deactivated past slots", zap.Int("count", len(expired)))
		}
		return nil
	}
}

func handleReconcile(slots slotRepo.SlotRepository, bookings bookingRepo.BookingRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		active, err := slots.ListActive(ctx)
		if err != nil {
			return err
		}
		for i := range active {
			s := &active[i]
			n, err := bookings.CountBySlot(ctx, s.ID)
			if err != nil {
				logger.Warn("failed to count bookings", zap.String("slot", s.ID), zap.Error(err))
				continue
			}
			if int(n) == s.Occupancy {
				continue
			}
			logger.Warn("occupancy drift detected",
				zap.String("slot", s.ID),
				zap.Int("occupancy", s.Occupancy),
				zap.Int64("bookings", n),
			)
			if err := slots.SetOccupancy(ctx, s.ID, int(n)); err != nil {
				logger.Warn("failed to repair occupancy", zap.String("slot", s.ID), zap.Error(err))
			}
		}
		return nil
	}
}
