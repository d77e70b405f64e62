package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_clients",
		SQL: `CREATE TABLE IF NOT EXISTS clients (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  email      TEXT        NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_dossiers",
		SQL: `CREATE TABLE IF NOT EXISTS dossiers (
  id                 UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  client_id          UUID        NOT NULL REFERENCES clients (id),
  accountant_id      UUID        NOT NULL,
  status             TEXT        NOT NULL DEFAULT 'PENDING',
  documents_requis   INT         NOT NULL DEFAULT 0,
  documents_upload   INT         NOT NULL DEFAULT 0,
  pourcentage        INT         NOT NULL DEFAULT 0,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
  due_date           TIMESTAMPTZ,
  completed_at       TIMESTAMPTZ,
  validated_at       TIMESTAMPTZ,
  validation_comment TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_table_document_requests",
		SQL: `CREATE TABLE IF NOT EXISTS document_requests (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  dossier_id       UUID        NOT NULL REFERENCES dossiers (id),
  position         INT         NOT NULL DEFAULT 0,
  title            TEXT        NOT NULL,
  description      TEXT        NOT NULL DEFAULT '',
  document_type    TEXT        NOT NULL,
  obligatoire      BOOLEAN     NOT NULL DEFAULT true,
  quantite_min     INT         NOT NULL CHECK (quantite_min >= 1),
  quantite_max     INT         NOT NULL CHECK (quantite_max >= quantite_min),
  status           TEXT        NOT NULL DEFAULT 'AWAITING',
  accepted_formats TEXT        NOT NULL DEFAULT '',
  max_size_bytes   BIGINT      NOT NULL DEFAULT 0,
  due_date         TIMESTAMPTZ
);`,
	},
	{
		Name: "create_table_document_uploads",
		SQL: `CREATE TABLE IF NOT EXISTS document_uploads (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  request_id     UUID        NOT NULL REFERENCES document_requests (id),
  file_id        TEXT        NOT NULL,
  file_name      TEXT        NOT NULL,
  file_size      BIGINT      NOT NULL CHECK (file_size >= 0),
  content_type   TEXT        NOT NULL,
  storage_path   TEXT        NOT NULL UNIQUE,
  submitted_by   TEXT        NOT NULL,
  submitted_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  status         TEXT        NOT NULL DEFAULT 'PENDING',
  review_comment TEXT        NOT NULL DEFAULT '',
  decided_at     TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_dossiers_client_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_dossiers_client_id ON dossiers (client_id);`,
	},
	{
		Name: "create_index_document_requests_dossier_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_requests_dossier_id ON document_requests (dossier_id);`,
	},
	{
		Name: "create_index_document_uploads_request_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_uploads_request_id ON document_uploads (request_id);`,
	},
	{
		Name: "create_index_document_uploads_submitted_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_uploads_submitted_at ON document_uploads (submitted_at);`,
	},
}

// EnsureMigrated checks if the 'dossiers' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.dossiers') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
