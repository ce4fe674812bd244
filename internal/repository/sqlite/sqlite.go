package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"netviz/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. ":memory:" gives a private in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes are serialized by the caller anyway, and an
	// in-memory database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS topologies (
		id INTEGER PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS devices (
		topology_id INTEGER NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		device_type TEXT NOT NULL DEFAULT '',
		host_id INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (topology_id, id),
		FOREIGN KEY (topology_id) REFERENCES topologies(id) ON DELETE CASCADE
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Load reads a topology and its devices
func (r *Repository) Load(ctx context.Context, topologyID int) (*domain.Topology, error) {
	var id int
	err := r.db.QueryRowContext(ctx, `SELECT id FROM topologies WHERE id = ?`, topologyID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topology: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, x, y, device_type, host_id
		FROM devices WHERE topology_id = ?
	`, topologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	topo := domain.NewTopology(id)
	for rows.Next() {
		var (
			d          domain.Device
			deviceType string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.X, &d.Y, &deviceType, &d.HostID); err != nil {
			return nil, fmt.Errorf("%w: failed to scan device: %v", domain.ErrCorruptData, err)
		}
		d.DeviceType = domain.DeviceType(deviceType)
		topo.Devices[d.ID] = d
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}

	return topo, nil
}

// Save replaces the topology's rows in a single transaction
func (r *Repository) Save(ctx context.Context, topo *domain.Topology) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO topologies (id, updated_at) VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`, topo.ID); err != nil {
		return fmt.Errorf("failed to upsert topology: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE topology_id = ?`, topo.ID); err != nil {
		return fmt.Errorf("failed to clear devices: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO devices (topology_id, id, name, x, y, device_type, host_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare device statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range topo.DeviceList() {
		if _, err := stmt.ExecContext(ctx, topo.ID, d.ID, d.Name, d.X, d.Y, string(d.DeviceType), d.HostID); err != nil {
			return fmt.Errorf("failed to insert device %d: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
