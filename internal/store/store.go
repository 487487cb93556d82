package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that no entity exists under the requested id.
var ErrNotFound = errors.New("not found")

// Facility statuses.
const (
	FacilityOperational = "operational"
	FacilityDegraded    = "degraded"
	FacilityOffline     = "offline"
)

// Shipment statuses.
const (
	ShipmentPending   = "pending"
	ShipmentInTransit = "in_transit"
	ShipmentDelayed   = "delayed"
	ShipmentDelivered = "delivered"
	ShipmentLost      = "lost"
)

// Contract statuses.
const (
	ContractActive     = "active"
	ContractExpired    = "expired"
	ContractTerminated = "terminated"
)

// Facility is a warehouse, port, plant, or distribution center.
type Facility struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Shipment is a consignment moving between two facilities.
type Shipment struct {
	ID            string    `json:"id"`
	Reference     string    `json:"reference"`
	OriginID      string    `json:"originId"`
	DestinationID string    `json:"destinationId"`
	Carrier       string    `json:"carrier"`
	Contents      string    `json:"contents"`
	WeightKg      float64   `json:"weightKg"`
	Status        string    `json:"status"`
	EtaDays       int       `json:"etaDays"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Contract is a carrier agreement scoped to one facility.
type Contract struct {
	ID         string    `json:"id"`
	Carrier    string    `json:"carrier"`
	FacilityID string    `json:"facilityId"`
	RatePerKg  float64   `json:"ratePerKg"`
	Status     string    `json:"status"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is the entity persistence contract consumed by tools and resources.
// List methods return records in insertion order; no transactional guarantees
// hold across calls.
type Store interface {
	CreateFacility(ctx context.Context, f Facility) (Facility, error)
	GetFacility(ctx context.Context, id string) (Facility, error)
	ListFacilities(ctx context.Context) ([]Facility, error)
	UpdateFacility(ctx context.Context, f Facility) error
	DeleteFacility(ctx context.Context, id string) error

	CreateShipment(ctx context.Context, s Shipment) (Shipment, error)
	GetShipment(ctx context.Context, id string) (Shipment, error)
	ListShipments(ctx context.Context) ([]Shipment, error)
	ListShipmentsByFacility(ctx context.Context, facilityID string) ([]Shipment, error)
	RecentShipments(ctx context.Context, n int) ([]Shipment, error)
	UpdateShipment(ctx context.Context, s Shipment) error
	DeleteShipment(ctx context.Context, id string) error

	CreateContract(ctx context.Context, c Contract) (Contract, error)
	GetContract(ctx context.Context, id string) (Contract, error)
	ListContracts(ctx context.Context) ([]Contract, error)
	ListContractsByFacility(ctx context.Context, facilityID string) ([]Contract, error)
	UpdateContract(ctx context.Context, c Contract) error
	DeleteContract(ctx context.Context, id string) error

	Close() error
}

const idLen = 24

// NewID mints a 24-character hexadecimal entity id.
func NewID() string {
	b := make([]byte, idLen/2)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%024x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// ValidID reports whether id is a well-formed 24-character hex identifier.
func ValidID(id string) bool {
	if len(id) != idLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
