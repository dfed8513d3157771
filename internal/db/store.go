package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arencloud/cloudgate/internal/models"
	"github.com/arencloud/cloudgate/internal/onboarding"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the dashboard side of the completion handoff. It also keeps
// request traces.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store { return &Store{db: gdb} }

// Accept writes the account and one connection row per connected provider.
// Completing again with the same email refreshes the existing rows.
func (s *Store) Accept(ctx context.Context, sum onboarding.Summary) error {
	rec := sum.Registration
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc models.Account
		err := tx.Where("email = ?", rec.Email).First(&acc).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			acc = models.Account{Email: rec.Email}
		case err != nil:
			return fmt.Errorf("find account: %w", err)
		}
		acc.FirstName = rec.FirstName
		acc.LastName = rec.LastName
		acc.Company = rec.Company
		acc.PasswordHash = rec.PasswordHash
		acc.TermsAccepted = rec.TermsAccepted
		acc.RegisteredAt = rec.CreatedAt
		acc.CompletedAt = sum.CompletedAt
		if err := tx.Save(&acc).Error; err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		for _, c := range sum.Connections {
			row := models.Connection{
				AccountID:          acc.ID,
				Provider:           c.Kind.String(),
				Handle:             c.Handle,
				Regions:            strings.Join(c.Regions, ","),
				AutoSync:           c.Options.AutoSync,
				CostOptimization:   c.Options.CostOptimization,
				SecurityMonitoring: c.Options.SecurityMonitoring,
				ConnectedAt:        c.ConnectedAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "provider"}},
				DoUpdates: clause.AssignmentColumns([]string{"handle", "regions", "auto_sync", "cost_optimization", "security_monitoring", "connected_at", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("save connection %s: %w", row.Provider, err)
			}
		}
		return nil
	})
}

// Account loads an account and its connections by email.
func (s *Store) Account(ctx context.Context, email string) (models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Preload("Connections", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Where("email = ?", strings.ToLower(email)).First(&acc).Error
	return acc, err
}

// SaveTrace stores a trace and its events.
func (s *Store) SaveTrace(ctx context.Context, row models.TraceRow, events []models.TraceEventRow) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		for i := range events {
			events[i].TraceID = row.ID
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
}

// RecentTraces returns the newest traces first.
func (s *Store) RecentTraces(ctx context.Context, limit int) ([]models.TraceRow, error) {
	var rows []models.TraceRow
	err := s.db.WithContext(ctx).Order("started desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Trace loads one trace with its events in time order.
func (s *Store) Trace(ctx context.Context, id string) (models.TraceRow, []models.TraceEventRow, error) {
	var tr models.TraceRow
	if err := s.db.WithContext(ctx).First(&tr, "id = ?", id).Error; err != nil {
		return tr, nil, err
	}
	var evs []models.TraceEventRow
	err := s.db.WithContext(ctx).Where("trace_id = ?", id).Order("time asc").Find(&evs).Error
	return tr, evs, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
