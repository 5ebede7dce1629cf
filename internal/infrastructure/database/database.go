package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Config controls GORM/PostgreSQL connectivity.
type Config struct {
	DatabaseURL string
	ReplicaURLs []string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// Connect opens a postgres connection pool.
func Connect(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		log.Error().Err(err).Msg("unable to connect to database")
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := ConfigurePool(db, cfg); err != nil {
		return nil, err
	}

	if len(cfg.ReplicaURLs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaURLs))
		for _, url := range cfg.ReplicaURLs {
			replicas = append(replicas, postgres.Open(url))
		}
		if err := UseReplicas(db, replicas, cfg); err != nil {
			return nil, err
		}
		log.Info().Int("replicas", len(replicas)).Msg("read replicas registered")
	}

	log.Info().Msg("connected to database")
	return db, nil
}

// ConfigurePool applies the pool limits; zero values keep the driver defaults.
func ConfigurePool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("retrieve sql db: %w", err)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}
	return nil
}

// UseReplicas sends plain reads to the replicas. Writes, transactions and
// queries carrying dbresolver.Write stay on the primary.
func UseReplicas(db *gorm.DB, replicas []gorm.Dialector, cfg Config) error {
	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	})
	if cfg.MaxIdle > 0 {
		resolver.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		resolver.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxLifetime > 0 {
		resolver.SetConnMaxLifetime(cfg.MaxLifetime)
	}
	if err := db.Use(resolver); err != nil {
		return fmt.Errorf("register read replicas: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
