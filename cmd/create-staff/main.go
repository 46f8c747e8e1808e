package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/database"
	"github.com/examgate/examgate-backend/internal/logger"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// Redis is not needed for account creation.
	authService := service.NewAuthService(cfg, nil)
	staffRepo := repository.NewStaffRepository(pool)
	staffService := service.NewStaffService(staffRepo, authService)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Staff Account ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	fmt.Print("Enter Role (TEACHER/ADMIN, default TEACHER): ")
	roleStr, _ := reader.ReadString('\n')
	roleStr = strings.ToUpper(strings.TrimSpace(roleStr))
	role := model.StaffRoleTeacher
	switch roleStr {
	case "", "TEACHER":
	case "ADMIN":
		role = model.StaffRoleAdmin
	default:
		fmt.Println("Error: Role must be TEACHER or ADMIN")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	staff := &model.Staff{
		Email: email,
		Name:  name,
		Role:  role,
	}

	if err := staffService.Create(ctx, staff, password); err != nil {
		log.Fatal().Err(err).Msg("Failed to create staff account")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %d\n", staff.Role, staff.Name, staff.Email, staff.ID)
}
