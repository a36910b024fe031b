package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// seedPlan is one default subscription tier.
type seedPlan struct {
	name                string
	stations, pumps     int
	nozzles, employees  int
	creditors           int
	exports, reports    int
	manualEntries       int
	salesDays           int
	profitDays          int
	analyticsDays       int
	auditDays           int
	transactionDays     int
	backdatedDays       int
	export, expenses    bool
	credits, profitLoss bool
}

// Default tiers. Retention -1 is unlimited.
var defaultPlans = []seedPlan{
	{
		name: "starter", stations: 1, pumps: 4, nozzles: 4, employees: 5, creditors: 10,
		exports: 5, reports: 30, manualEntries: 500,
		salesDays: 90, profitDays: 30, analyticsDays: 30, auditDays: 90, transactionDays: 90,
		backdatedDays: 1,
	},
	{
		name: "pro", stations: 5, pumps: 10, nozzles: 6, employees: 25, creditors: 100,
		exports: 50, reports: 300, manualEntries: 5000,
		salesDays: 365, profitDays: 365, analyticsDays: 180, auditDays: 365, transactionDays: 365,
		backdatedDays: 3,
		export:        true, expenses: true, credits: true,
	},
	{
		name: "enterprise", stations: 0, pumps: 0, nozzles: 0, employees: 0, creditors: 0,
		exports: 0, reports: 0, manualEntries: 0,
		salesDays: model.RetentionUnlimited, profitDays: model.RetentionUnlimited,
		analyticsDays: model.RetentionUnlimited, auditDays: model.RetentionUnlimited,
		transactionDays: model.RetentionUnlimited,
		backdatedDays:   7,
		export:          true, expenses: true, credits: true, profitLoss: true,
	},
}

// Seed inserts the default plans and the bootstrap super admin. Existing
// rows are left untouched so the command is safe to re-run.
func (s *Store) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, p := range defaultPlans {
			_, err := tx.Exec(ctx, `
				INSERT INTO plans (
					name, max_stations, max_pumps_per_station, max_nozzles_per_pump,
					max_employees, max_creditors, monthly_exports, monthly_reports,
					monthly_manual_entries, sales_retention_days, profit_retention_days,
					analytics_retention_days, audit_retention_days, transaction_retention_days,
					backdated_days, can_export, can_track_expenses, can_track_credits,
					can_view_profit_loss
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
				ON CONFLICT (name) DO NOTHING`,
				p.name, p.stations, p.pumps, p.nozzles, p.employees, p.creditors,
				p.exports, p.reports, p.manualEntries, p.salesDays, p.profitDays,
				p.analyticsDays, p.auditDays, p.transactionDays, p.backdatedDays,
				p.export, p.expenses, p.credits, p.profitLoss)
			if err != nil {
				return fmt.Errorf("seed plan %s: %w", p.name, err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (email, password_hash, name, role, is_active)
			VALUES ($1, $2, 'Platform Admin', 'super_admin', TRUE)
			ON CONFLICT (email) DO NOTHING`,
			adminEmail, hash)
		if err != nil {
			return fmt.Errorf("seed super admin: %w", err)
		}

		s.logger.Info().Str("admin", adminEmail).Msg("seeded default plans and super admin")
		return nil
	})
}
