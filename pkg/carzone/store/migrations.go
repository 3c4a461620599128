package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// SchemaVersion is the schema version the application expects.
const SchemaVersion = 2

// Migration is one schema step.
type Migration struct {
	Up          func(*sqlx.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS sellers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				city TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS cars (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				seller_id INTEGER NOT NULL REFERENCES sellers(id),
				maker TEXT NOT NULL,
				model TEXT NOT NULL,
				fuel_type TEXT NOT NULL DEFAULT '',
				transmission TEXT NOT NULL DEFAULT '',
				variant TEXT NOT NULL DEFAULT '',
				year INTEGER NOT NULL,
				km_driven INTEGER NOT NULL DEFAULT 0,
				mileage REAL NOT NULL DEFAULT 0,
				ownership TEXT NOT NULL DEFAULT '',
				price INTEGER NOT NULL CHECK (price >= 0),
				state TEXT NOT NULL DEFAULT '',
				city TEXT NOT NULL DEFAULT '',
				extra_features TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cars_status_created ON cars(status, created_at)`,
			`CREATE TABLE IF NOT EXISTS car_images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				car_id INTEGER NOT NULL REFERENCES cars(id),
				image_data BLOB NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_car_images_car ON car_images(car_id)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				car_id INTEGER NOT NULL REFERENCES cars(id),
				document_type TEXT NOT NULL CHECK (document_type IN ('rc_book', 'insurance')),
				document_data BLOB NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_car ON documents(car_id, document_type)`,
		),
	},
	{
		Version:     2,
		Description: "Add buyer inquiries",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS buyer_inquiries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				car_id INTEGER NOT NULL REFERENCES cars(id),
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'contacted')),
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_buyer_inquiries_status ON buyer_inquiries(status)`,
		),
	},
}

func execAll(queries ...string) func(*sqlx.Tx) error {
	return func(tx *sqlx.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query: %w", err)
			}
		}
		return nil
	}
}

// Version reports the current schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every pending migration.
func (s *Store) Migrate(ctx context.Context) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		err := s.withTx(ctx, func(tx *sqlx.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.Version, err)
			}
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", m.Version,
			"description", m.Description)
	}

	final, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if final != SchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", SchemaVersion, final)
	}
	return nil
}
