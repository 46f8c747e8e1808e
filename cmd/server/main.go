package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/database"
	"github.com/examgate/examgate-backend/internal/handler"
	"github.com/examgate/examgate-backend/internal/logger"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/router"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/examgate/examgate-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamGate Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	classRepo := repository.NewClassRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	bankRepo := repository.NewQuestionBankRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	roomRepo := repository.NewExamRoomRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	attemptCache := service.NewRedisAttemptCache(rdb)
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	staffService := service.NewStaffService(staffRepo, authService)
	classService := service.NewClassService(classRepo)
	settingService := service.NewSettingService(settingRepo, rdb, cfg.GradeBands, log)
	questionService := service.NewQuestionService(bankRepo, questionRepo)
	roomService := service.NewRoomService(roomRepo, bankRepo, resultRepo, attemptCache, log)
	attemptService := service.NewAttemptService(
		attemptRepo, questionRepo, roomRepo, studentRepo,
		attemptCache, settingService, log, cfg.ViolationTerminateAfter,
	)
	monitorService := service.NewMonitorService(monitorRepo, attemptRepo, studentRepo)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, studentService, staffService),
		StudentExam: handler.NewStudentExamHandler(attemptService, roomService),
		StudentMgmt: handler.NewStudentManagementHandler(studentService, roomService),
		Class:       handler.NewClassHandler(classService),
		Room:        handler.NewRoomHandler(roomService, attemptService, staffService),
		Question:    handler.NewQuestionHandler(questionService),
		Staff:       handler.NewStaffHandler(staffService),
		Setting:     handler.NewSettingHandler(settingService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
		Monitor:     handler.NewMonitorHandler(rdb, roomService, monitorService, log),
		System:      handler.NewSystemHandler(pool, rdb, log),
		WS:          handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)

	// ─── Timeout Sweep ────────────────────────────────────────────────
	// Attempts whose deadline plus grace has passed are auto-submitted
	// with whatever was autosaved.
	go func() {
		ticker := time.NewTicker(cfg.OverdueSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				closed, err := attemptService.FinishOverdue(workerCtx, cfg.OverdueGrace)
				if err != nil {
					log.Error().Err(err).Msg("Overdue sweep failed")
				} else if closed > 0 {
					log.Info().Int("closed", closed).Msg("Overdue attempts auto-submitted")
				}
			}
		}
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
