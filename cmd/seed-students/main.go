package main

import (
	"context"
	"fmt"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/database"
	"github.com/examgate/examgate-backend/internal/logger"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/jackc/pgx/v5"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	classRepo := repository.NewClassRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)

	authService := service.NewAuthService(cfg, nil)
	classService := service.NewClassService(classRepo)
	studentService := service.NewStudentService(studentRepo, authService)

	className := "Demo Class A"

	fmt.Println("=== Seeding 50 Students ===")

	var classID int
	err = pool.QueryRow(ctx, "SELECT id FROM classes WHERE name = $1", className).Scan(&classID)
	if err != nil {
		if err == pgx.ErrNoRows {
			fmt.Printf("Class %q not found. Creating it...\n", className)
			newClass := &model.Class{Name: className}
			if err := classService.Create(ctx, newClass); err != nil {
				log.Fatal().Err(err).Msg("Failed to create class")
			}
			classID = newClass.ID
			fmt.Printf("Created class with ID: %d\n", classID)
		} else {
			log.Fatal().Err(err).Msg("Failed to check existing class")
		}
	} else {
		fmt.Printf("Found existing class with ID: %d\n", classID)
	}

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}

	successCount := 0
	for i := 0; i < 50; i++ {
		student := &model.Student{
			Username: fmt.Sprintf("student%02d", i+1),
			Name:     names[i],
			ClassID:  classID,
		}

		if err := studentService.Create(ctx, student, "changeme123"); err != nil {
			fmt.Printf("Error creating student %s (%s): %v\n", student.Name, student.Username, err)
		} else {
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d students...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/50 students.\n", successCount)
}
