package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store. Safe for concurrent use; records are copied
// on the way in and out.
type Memory struct {
	mu  sync.RWMutex
	seq int

	facilities map[string]memRecord[Facility]
	shipments  map[string]memRecord[Shipment]
	contracts  map[string]memRecord[Contract]
}

type memRecord[T any] struct {
	seq   int
	value T
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		facilities: make(map[string]memRecord[Facility]),
		shipments:  make(map[string]memRecord[Shipment]),
		contracts:  make(map[string]memRecord[Contract]),
	}
}

func (m *Memory) CreateFacility(ctx context.Context, f Facility) (Facility, error) {
	if err := ctx.Err(); err != nil {
		return Facility{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == "" {
		f.ID = NewID()
	}
	if !ValidID(f.ID) {
		return Facility{}, fmt.Errorf("invalid facility id %q", f.ID)
	}
	if _, exists := m.facilities[f.ID]; exists {
		return Facility{}, fmt.Errorf("facility %s already exists", f.ID)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	m.seq++
	m.facilities[f.ID] = memRecord[Facility]{seq: m.seq, value: f}
	return f, nil
}

func (m *Memory) GetFacility(ctx context.Context, id string) (Facility, error) {
	if err := ctx.Err(); err != nil {
		return Facility{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.facilities[id]
	if !ok {
		return Facility{}, fmt.Errorf("facility %s: %w", id, ErrNotFound)
	}
	return rec.value, nil
}

func (m *Memory) ListFacilities(ctx context.Context) ([]Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.facilities), nil
}

func (m *Memory) UpdateFacility(ctx context.Context, f Facility) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.facilities[f.ID]
	if !ok {
		return fmt.Errorf("facility %s: %w", f.ID, ErrNotFound)
	}
	rec.value = f
	m.facilities[f.ID] = rec
	return nil
}

func (m *Memory) DeleteFacility(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.facilities[id]; !ok {
		return fmt.Errorf("facility %s: %w", id, ErrNotFound)
	}
	delete(m.facilities, id)
	return nil
}

func (m *Memory) CreateShipment(ctx context.Context, s Shipment) (Shipment, error) {
	if err := ctx.Err(); err != nil {
		return Shipment{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = NewID()
	}
	if !ValidID(s.ID) {
		return Shipment{}, fmt.Errorf("invalid shipment id %q", s.ID)
	}
	if _, exists := m.shipments[s.ID]; exists {
		return Shipment{}, fmt.Errorf("shipment %s already exists", s.ID)
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}

	m.seq++
	m.shipments[s.ID] = memRecord[Shipment]{seq: m.seq, value: s}
	return s, nil
}

func (m *Memory) GetShipment(ctx context.Context, id string) (Shipment, error) {
	if err := ctx.Err(); err != nil {
		return Shipment{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.shipments[id]
	if !ok {
		return Shipment{}, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return rec.value, nil
}

func (m *Memory) ListShipments(ctx context.Context) ([]Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.shipments), nil
}

func (m *Memory) ListShipmentsByFacility(ctx context.Context, facilityID string) ([]Shipment, error) {
	all, err := m.ListShipments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Shipment, 0, len(all))
	for _, s := range all {
		if s.OriginID == facilityID || s.DestinationID == facilityID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) RecentShipments(ctx context.Context, n int) ([]Shipment, error) {
	all, err := m.ListShipments(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (m *Memory) UpdateShipment(ctx context.Context, s Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.shipments[s.ID]
	if !ok {
		return fmt.Errorf("shipment %s: %w", s.ID, ErrNotFound)
	}
	rec.value = s
	m.shipments[s.ID] = rec
	return nil
}

func (m *Memory) DeleteShipment(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shipments[id]; !ok {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	delete(m.shipments, id)
	return nil
}

func (m *Memory) CreateContract(ctx context.Context, c Contract) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = NewID()
	}
	if !ValidID(c.ID) {
		return Contract{}, fmt.Errorf("invalid contract id %q", c.ID)
	}
	if _, exists := m.contracts[c.ID]; exists {
		return Contract{}, fmt.Errorf("contract %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	m.seq++
	m.contracts[c.ID] = memRecord[Contract]{seq: m.seq, value: c}
	return c, nil
}

func (m *Memory) GetContract(ctx context.Context, id string) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.contracts[id]
	if !ok {
		return Contract{}, fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	return rec.value, nil
}

func (m *Memory) ListContracts(ctx context.Context) ([]Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.contracts), nil
}

func (m *Memory) ListContractsByFacility(ctx context.Context, facilityID string) ([]Contract, error) {
	all, err := m.ListContracts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Contract, 0, len(all))
	for _, c := range all {
		if c.FacilityID == facilityID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) UpdateContract(ctx context.Context, c Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.contracts[c.ID]
	if !ok {
		return fmt.Errorf("contract %s: %w", c.ID, ErrNotFound)
	}
	rec.value = c
	m.contracts[c.ID] = rec
	return nil
}

func (m *Memory) DeleteContract(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[id]; !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	delete(m.contracts, id)
	return nil
}

// Close implements Store; nothing to release.
func (m *Memory) Close() error { return nil }

func sortedValues[T any](m map[string]memRecord[T]) []T {
	recs := make([]memRecord[T], 0, len(m))
	for _, rec := range m {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.value)
	}
	return out
}

var _ Store = (*Memory)(nil)
