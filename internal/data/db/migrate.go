package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/domain"
)

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver == DriverPostgres {
		if err := ensurePostgresIndexes(s.db); err != nil {
			return err
		}
	}
	s.log.Info("Auto migration complete")
	return nil
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

func ensurePostgresIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_legal_document_country_uploaded ON legal_document (country, uploaded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_session_user_updated ON chat_session (user_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_query_log_user_created ON query_log (user_id, created_at DESC)`,
	}
	for _, q := range stmts {
		if err := db.Exec(q).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
