package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dimitrije/teamtasks-api/internal/config"
	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/logger"
	"github.com/dimitrije/teamtasks-api/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: promote-admin <team-id> <email>")
		os.Exit(1)
	}

	teamID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Printf("Invalid team id: %s\n", os.Args[1])
		os.Exit(1)
	}
	email := strings.ToLower(strings.TrimSpace(os.Args[2]))

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	result, err := db.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		SELECT t.id, u.id, $3
		FROM teams t, users u
		WHERE t.id = $1 AND u.email = $2
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, teamID, email, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to promote user: %v", err)
	}

	if result.RowsAffected() == 0 {
		log.Fatalf("No team %s or no user with email %s", teamID, email)
	}

	log.WithFields(logrus.Fields{"team_id": teamID, "email": email}).Info("user promoted to team admin")
	fmt.Printf("Successfully promoted %s to admin of team %s\n", email, teamID)
}
