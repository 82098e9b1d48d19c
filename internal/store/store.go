/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists crawled station records in a local SQLite database
// so the relay can reload its catalog across restarts without re-crawling.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/skald_relay/internal/models"
)

// Store wraps the station database.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open station database: %w", err)
	}

	if err := db.AutoMigrate(&models.Station{}); err != nil {
		return nil, fmt.Errorf("migrate station database: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// ReplaceAll swaps the persisted station set in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, stations []models.Station) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Station{}).Error; err != nil {
			return err
		}
		if len(stations) == 0 {
			return nil
		}
		return tx.CreateInBatches(stations, 200).Error
	})
	if err != nil {
		return fmt.Errorf("replace stations: %w", err)
	}

	s.logger.Info().Int("count", len(stations)).Msg("station set persisted")
	return nil
}

// LoadAll returns every persisted station.
func (s *Store) LoadAll(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := s.db.WithContext(ctx).Order("region, name").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	return stations, nil
}

// RegionStats counts stations per region, national group first, then by
// descending count.
func (s *Store) RegionStats(ctx context.Context) ([]models.RegionStat, error) {
	var stats []models.RegionStat
	err := s.db.WithContext(ctx).
		Model(&models.Station{}).
		Select("region, count(*) as count").
		Group("region").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("region stats: %w", err)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Region == "央广" {
			return true
		}
		if stats[j].Region == "央广" {
			return false
		}
		return stats[i].Count > stats[j].Count
	})
	return stats, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
