package cmd

import (
	"fmt"
	"time"

	"github.com/jmehdipour/formdesk/internal/config"
	"github.com/jmehdipour/formdesk/internal/db"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo clients, a contact form and its feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, cfg.MySQL.Pool())
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		logger.Log.Info("seeding demo clients")
		if err := seedClients(sqlDB); err != nil {
			return err
		}

		logger.Log.Info("seeding demo contact form")
		if err := seedContactForm(sqlDB); err != nil {
			return err
		}

		logger.Log.Info("seed completed")
		return nil
	},
}

// seedClients inserts deterministic demo clients (idempotent).
func seedClients(dbx *sqlx.DB) error {
	clients := []model.Client{
		{
			Name:         "Marketing Site",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Support Portal",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: nil,
		},
		{
			Name:         "Retired Landing Page",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO clients
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name           = VALUES(name),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, c := range clients {
		if _, err := tx.Exec(q, c.Name, c.APIKey, c.Status, c.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert client %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clients: %w", err)
	}
	return nil
}

// seedContactForm creates form 1 with fields 1 email, 2 name (2.3 first,
// 2.6 last), 3 topic, 4 message, and one feed mapping them.
func seedContactForm(dbx *sqlx.DB) error {
	meta := model.FeedMeta{
		FeedName:      "Contact to helpdesk",
		CustomerEmail: "1",
		CustomerName:  "2",
		Subject:       "[{form_title}] {Topic:3}",
		MessageField:  "4",
		ExtraFields: []model.ExtraField{
			{Label: "Topic", Value: "3"},
			{Label: "Channel", Value: "website", Source: model.SourceLiteral},
		},
	}

	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`
INSERT INTO forms (id, title, created_at) VALUES (1, 'Contact Us', NOW())
ON DUPLICATE KEY UPDATE title = VALUES(title)
`); err != nil {
		return fmt.Errorf("insert form: %w", err)
	}

	if _, err := tx.Exec(`
INSERT INTO feeds (id, form_id, is_active, meta) VALUES (1, 1, 1, ?)
ON DUPLICATE KEY UPDATE meta = VALUES(meta), is_active = VALUES(is_active)
`, meta); err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit form: %w", err)
	}
	return nil
}

func intptr(i int) *int { return &i }
