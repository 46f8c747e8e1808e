package router

import (
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/handler"
	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	StudentExam *handler.StudentExamHandler
	StudentMgmt *handler.StudentManagementHandler
	Class       *handler.ClassHandler
	Room        *handler.RoomHandler
	Question    *handler.QuestionHandler
	Staff       *handler.StaffHandler
	Setting     *handler.SettingHandler
	Dashboard   *handler.DashboardHandler
	Monitor     *handler.MonitorHandler
	System      *handler.SystemHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check for load balancers.
	router.GET("/healthz", handlers.System.Health)

	// Rate limiter for login routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", authLimiter.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/staff/login", authLimiter.Middleware(), handlers.Auth.StaffLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/staff/me", middleware.RequireStaffJWT(authService), handlers.Auth.GetStaffProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/rooms", handlers.StudentExam.GetLobby)
		studentAPI.POST("/rooms/:room_id/attempts", handlers.StudentExam.StartAttempt)
		studentAPI.GET("/attempts/:attempt_id/state", handlers.StudentExam.GetAttemptState)
		studentAPI.PUT("/attempts/:attempt_id/answers", handlers.StudentExam.SaveAnswer)
		studentAPI.POST("/attempts/:attempt_id/finish", handlers.StudentExam.FinishAttempt)
		studentAPI.POST("/attempts/:attempt_id/violations", handlers.StudentExam.ReportViolation)
		studentAPI.GET("/attempts/:attempt_id/result", handlers.StudentExam.GetResult)
		studentAPI.GET("/history", handlers.StudentExam.GetHistory)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Staff Group (JWT + Role) ───────────────────────────────────
	staffAPI := router.Group("/api/v1/staff")
	staffAPI.Use(middleware.RequireStaffJWT(authService))
	{
		anyStaff := middleware.RequireRole(model.StaffRoleTeacher, model.StaffRoleAdmin)
		adminOnly := middleware.RequireRole(model.StaffRoleAdmin)

		// Dashboard
		staffAPI.GET("/dashboard", anyStaff, handlers.Dashboard.GetDashboard)

		// Question banks; ownership is enforced in the service layer.
		staffAPI.GET("/banks", anyStaff, handlers.Question.ListBanks)
		staffAPI.POST("/banks", anyStaff, handlers.Question.CreateBank)
		staffAPI.GET("/banks/:bank_id", anyStaff, handlers.Question.GetBank)
		staffAPI.PUT("/banks/:bank_id", anyStaff, handlers.Question.UpdateBank)
		staffAPI.DELETE("/banks/:bank_id", anyStaff, handlers.Question.DeleteBank)
		staffAPI.GET("/banks/:bank_id/questions", anyStaff, handlers.Question.ListQuestions)
		staffAPI.POST("/banks/:bank_id/questions", anyStaff, handlers.Question.AddQuestion)
		staffAPI.PUT("/banks/:bank_id/questions", anyStaff, handlers.Question.ReplaceQuestions)
		staffAPI.DELETE("/banks/:bank_id/questions/:question_id", anyStaff, handlers.Question.DeleteQuestion)

		// Exam rooms
		staffAPI.GET("/rooms", anyStaff, handlers.Room.ListRooms)
		staffAPI.POST("/rooms", anyStaff, handlers.Room.CreateRoom)
		staffAPI.GET("/rooms/:room_id", anyStaff, handlers.Room.GetRoom)
		staffAPI.PUT("/rooms/:room_id", anyStaff, handlers.Room.UpdateRoom)
		staffAPI.DELETE("/rooms/:room_id", anyStaff, handlers.Room.DeleteRoom)
		staffAPI.POST("/rooms/:room_id/activate", anyStaff, handlers.Room.SetRoomActive(true))
		staffAPI.POST("/rooms/:room_id/deactivate", anyStaff, handlers.Room.SetRoomActive(false))
		staffAPI.GET("/rooms/:room_id/results", anyStaff, handlers.Room.GetRoomResults)
		staffAPI.GET("/rooms/:room_id/summary", anyStaff, handlers.Room.GetRoomSummary)
		staffAPI.POST("/rooms/:room_id/terminate", anyStaff, handlers.Room.TerminateRoomAttempts)
		staffAPI.GET("/rooms/:room_id/monitor", anyStaff, handlers.Monitor.MonitorRoomSSE)

		// Attempts
		staffAPI.POST("/attempts/:attempt_id/terminate", anyStaff, handlers.Room.TerminateAttempt)
		staffAPI.GET("/attempts/:attempt_id/violations", anyStaff, handlers.Room.GetAttemptViolations)

		// Classes
		staffAPI.GET("/classes", anyStaff, handlers.Class.ListClasses)
		staffAPI.POST("/classes", adminOnly, handlers.Class.CreateClass)
		staffAPI.PUT("/classes/:id", adminOnly, handlers.Class.UpdateClass)
		staffAPI.DELETE("/classes/:id", adminOnly, handlers.Class.DeleteClass)

		// Students
		staffAPI.GET("/students", anyStaff, handlers.StudentMgmt.ListStudents)
		staffAPI.GET("/students/:id", anyStaff, handlers.StudentMgmt.GetStudent)
		staffAPI.GET("/students/:id/history", anyStaff, handlers.StudentMgmt.GetStudentHistory)
		staffAPI.POST("/students", adminOnly, handlers.StudentMgmt.CreateStudent)
		staffAPI.PUT("/students/:id", adminOnly, handlers.StudentMgmt.UpdateStudent)
		staffAPI.DELETE("/students/:id", adminOnly, handlers.StudentMgmt.DeleteStudent)
		staffAPI.POST("/students/:id/suspend", anyStaff, handlers.StudentMgmt.SuspendStudent)
		staffAPI.POST("/students/:id/unsuspend", anyStaff, handlers.StudentMgmt.UnsuspendStudent)
		staffAPI.POST("/students/:id/reset-session", anyStaff, handlers.StudentMgmt.ResetStudentSession)

		// Staff accounts (admin only)
		staffAPI.GET("/accounts", adminOnly, handlers.Staff.ListStaff)
		staffAPI.POST("/accounts", adminOnly, handlers.Staff.CreateStaff)
		staffAPI.PUT("/accounts/:id/password", adminOnly, handlers.Staff.ChangeStaffPassword)
		staffAPI.DELETE("/accounts/:id", adminOnly, handlers.Staff.DeleteStaff)

		// App settings (admin only)
		staffAPI.GET("/settings", adminOnly, handlers.Setting.GetSettings)
		staffAPI.PUT("/settings/:key", adminOnly, handlers.Setting.UpdateSetting)

		// Operational stats (admin only)
		staffAPI.GET("/system/stats", adminOnly, handlers.System.Stats)
	}

	return router
}
