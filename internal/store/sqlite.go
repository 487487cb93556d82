package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS facilities (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	location TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shipments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	reference TEXT NOT NULL,
	origin_id TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	carrier TEXT NOT NULL,
	contents TEXT NOT NULL,
	weight_kg REAL NOT NULL,
	status TEXT NOT NULL,
	eta_days INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shipments_origin ON shipments(origin_id);
CREATE INDEX IF NOT EXISTS idx_shipments_destination ON shipments(destination_id);

CREATE TABLE IF NOT EXISTS contracts (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	carrier TEXT NOT NULL,
	facility_id TEXT NOT NULL,
	rate_per_kg REAL NOT NULL,
	status TEXT NOT NULL,
	starts_at TEXT NOT NULL,
	ends_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_facility ON contracts(facility_id);`

// SQLite persists entities in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite-backed entity store.
func NewSQLite(dsn string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("entity store sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("entity store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("entity store set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("entity store create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateFacility(ctx context.Context, f Facility) (Facility, error) {
	if f.ID == "" {
		f.ID = NewID()
	}
	if !ValidID(f.ID) {
		return Facility{}, fmt.Errorf("invalid facility id %q", f.ID)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO facilities (id, name, kind, location, capacity, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Kind, f.Location, f.Capacity, f.Status, encodeTime(f.CreatedAt))
	if err != nil {
		return Facility{}, fmt.Errorf("entity store create facility: %w", err)
	}
	return f, nil
}

func (s *SQLite) GetFacility(ctx context.Context, id string) (Facility, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, kind, location, capacity, status, created_at
FROM facilities WHERE id = ?`, id)

	f, err := scanFacility(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Facility{}, fmt.Errorf("facility %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Facility{}, fmt.Errorf("entity store get facility: %w", err)
	}
	return f, nil
}

func (s *SQLite) ListFacilities(ctx context.Context) ([]Facility, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, kind, location, capacity, status, created_at
FROM facilities ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("entity store list facilities: %w", err)
	}
	defer rows.Close()

	var out []Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("entity store scan facility: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateFacility(ctx context.Context, f Facility) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE facilities SET name = ?, kind = ?, location = ?, capacity = ?, status = ?
WHERE id = ?`,
		f.Name, f.Kind, f.Location, f.Capacity, f.Status, f.ID)
	if err != nil {
		return fmt.Errorf("entity store update facility: %w", err)
	}
	return requireRow(res, "facility", f.ID)
}

func (s *SQLite) DeleteFacility(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM facilities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("entity store delete facility: %w", err)
	}
	return requireRow(res, "facility", id)
}

func (s *SQLite) CreateShipment(ctx context.Context, sh Shipment) (Shipment, error) {
	if sh.ID == "" {
		sh.ID = NewID()
	}
	if !ValidID(sh.ID) {
		return Shipment{}, fmt.Errorf("invalid shipment id %q", sh.ID)
	}
	now := time.Now().UTC()
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}
	if sh.UpdatedAt.IsZero() {
		sh.UpdatedAt = sh.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO shipments (id, reference, origin_id, destination_id, carrier, contents, weight_kg, status, eta_days, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.Reference, sh.OriginID, sh.DestinationID, sh.Carrier, sh.Contents,
		sh.WeightKg, sh.Status, sh.EtaDays, encodeTime(sh.CreatedAt), encodeTime(sh.UpdatedAt))
	if err != nil {
		return Shipment{}, fmt.Errorf("entity store create shipment: %w", err)
	}
	return sh, nil
}

func (s *SQLite) GetShipment(ctx context.Context, id string) (Shipment, error) {
	row := s.db.QueryRowContext(ctx, selectShipments+" WHERE id = ?", id)

	sh, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Shipment{}, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Shipment{}, fmt.Errorf("entity store get shipment: %w", err)
	}
	return sh, nil
}

const selectShipments = `
SELECT id, reference, origin_id, destination_id, carrier, contents, weight_kg, status, eta_days, created_at, updated_at
FROM shipments`

func (s *SQLite) ListShipments(ctx context.Context) ([]Shipment, error) {
	return s.queryShipments(ctx, selectShipments+" ORDER BY seq ASC")
}

func (s *SQLite) ListShipmentsByFacility(ctx context.Context, facilityID string) ([]Shipment, error) {
	return s.queryShipments(ctx,
		selectShipments+" WHERE origin_id = ? OR destination_id = ? ORDER BY seq ASC",
		facilityID, facilityID)
}

func (s *SQLite) RecentShipments(ctx context.Context, n int) ([]Shipment, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryShipments(ctx,
		selectShipments+" ORDER BY created_at DESC, seq DESC LIMIT ?", n)
}

func (s *SQLite) queryShipments(ctx context.Context, query string, args ...any) ([]Shipment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entity store query shipments: %w", err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("entity store scan shipment: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateShipment(ctx context.Context, sh Shipment) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE shipments SET reference = ?, origin_id = ?, destination_id = ?, carrier = ?, contents = ?, weight_kg = ?, status = ?, eta_days = ?, updated_at = ?
WHERE id = ?`,
		sh.Reference, sh.OriginID, sh.DestinationID, sh.Carrier, sh.Contents,
		sh.WeightKg, sh.Status, sh.EtaDays, encodeTime(sh.UpdatedAt), sh.ID)
	if err != nil {
		return fmt.Errorf("entity store update shipment: %w", err)
	}
	return requireRow(res, "shipment", sh.ID)
}

func (s *SQLite) DeleteShipment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shipments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("entity store delete shipment: %w", err)
	}
	return requireRow(res, "shipment", id)
}

func (s *SQLite) CreateContract(ctx context.Context, c Contract) (Contract, error) {
	if c.ID == "" {
		c.ID = NewID()
	}
	if !ValidID(c.ID) {
		return Contract{}, fmt.Errorf("invalid contract id %q", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO contracts (id, carrier, facility_id, rate_per_kg, status, starts_at, ends_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Carrier, c.FacilityID, c.RatePerKg, c.Status,
		encodeTime(c.StartsAt), encodeTime(c.EndsAt), encodeTime(c.CreatedAt))
	if err != nil {
		return Contract{}, fmt.Errorf("entity store create contract: %w", err)
	}
	return c, nil
}

func (s *SQLite) GetContract(ctx context.Context, id string) (Contract, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, carrier, facility_id, rate_per_kg, status, starts_at, ends_at, created_at
FROM contracts WHERE id = ?`, id)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Contract{}, fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Contract{}, fmt.Errorf("entity store get contract: %w", err)
	}
	return c, nil
}

func (s *SQLite) ListContracts(ctx context.Context) ([]Contract, error) {
	return s.queryContracts(ctx, `
SELECT id, carrier, facility_id, rate_per_kg, status, starts_at, ends_at, created_at
FROM contracts ORDER BY seq ASC`)
}

func (s *SQLite) ListContractsByFacility(ctx context.Context, facilityID string) ([]Contract, error) {
	return s.queryContracts(ctx, `
SELECT id, carrier, facility_id, rate_per_kg, status, starts_at, ends_at, created_at
FROM contracts WHERE facility_id = ? ORDER BY seq ASC`, facilityID)
}

func (s *SQLite) queryContracts(ctx context.Context, query string, args ...any) ([]Contract, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entity store query contracts: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("entity store scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateContract(ctx context.Context, c Contract) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE contracts SET carrier = ?, facility_id = ?, rate_per_kg = ?, status = ?, starts_at = ?, ends_at = ?
WHERE id = ?`,
		c.Carrier, c.FacilityID, c.RatePerKg, c.Status,
		encodeTime(c.StartsAt), encodeTime(c.EndsAt), c.ID)
	if err != nil {
		return fmt.Errorf("entity store update contract: %w", err)
	}
	return requireRow(res, "contract", c.ID)
}

func (s *SQLite) DeleteContract(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("entity store delete contract: %w", err)
	}
	return requireRow(res, "contract", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFacility(row rowScanner) (Facility, error) {
	var f Facility
	var created string
	if err := row.Scan(&f.ID, &f.Name, &f.Kind, &f.Location, &f.Capacity, &f.Status, &created); err != nil {
		return Facility{}, err
	}
	var err error
	f.CreatedAt, err = decodeTime(created)
	return f, err
}

func scanShipment(row rowScanner) (Shipment, error) {
	var sh Shipment
	var created, updated string
	if err := row.Scan(&sh.ID, &sh.Reference, &sh.OriginID, &sh.DestinationID, &sh.Carrier,
		&sh.Contents, &sh.WeightKg, &sh.Status, &sh.EtaDays, &created, &updated); err != nil {
		return Shipment{}, err
	}
	var err error
	if sh.CreatedAt, err = decodeTime(created); err != nil {
		return Shipment{}, err
	}
	sh.UpdatedAt, err = decodeTime(updated)
	return sh, err
}

func scanContract(row rowScanner) (Contract, error) {
	var c Contract
	var starts, ends, created string
	if err := row.Scan(&c.ID, &c.Carrier, &c.FacilityID, &c.RatePerKg, &c.Status, &starts, &ends, &created); err != nil {
		return Contract{}, err
	}
	var err error
	if c.StartsAt, err = decodeTime(starts); err != nil {
		return Contract{}, err
	}
	if c.EndsAt, err = decodeTime(ends); err != nil {
		return Contract{}, err
	}
	c.CreatedAt, err = decodeTime(created)
	return c, err
}

func requireRow(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("entity store rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// Timestamps are stored as fixed-width UTC strings so that text comparison
// in ORDER BY matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

var _ Store = (*SQLite)(nil)
