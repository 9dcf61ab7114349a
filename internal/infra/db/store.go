package db

import (
	"fmt"
	"log"

	"agritrace/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

// AutoMigrate keeps the schema current in dev and test environments;
// production rollouts run migrations out of band.
func (s *Store) AutoMigrate() error {
	if s.DB == nil {
		return errDBUnavailable
	}
	return s.DB.AutoMigrate(
		&WorkflowModel{},
		&ProductionUnitModel{},
		&CollectionEventModel{},
		&ConsolidationEventModel{},
		&ProcessingEventModel{},
		&ShipmentEventModel{},
		&DeforestationAlertModel{},
		&StageTransitionModel{},
	)
}
