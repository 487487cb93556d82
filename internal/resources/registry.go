// Package resources exposes live views over the entity store as MCP
// resources. Static resources have fixed URIs; dynamic facility resources
// are derived from whatever facilities exist at listing time. Nothing is
// cached, so a read always reflects current store state and an id listed a
// moment ago can legitimately be gone by the time it is read.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/activity"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

const (
	overviewURI = "supplychain://overview"
	recentURI   = "supplychain://shipments/recent"
	activityURI = "supplychain://activity"

	facilityScheme = "facility://"

	recentShipmentLimit = 10
	activityTailLimit   = 25
)

// UnknownResourceError reports a URI that matches no static resource and no
// dynamic pattern.
type UnknownResourceError struct {
	URI string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource: %s", e.URI)
}

// NotFoundError reports a well-formed dynamic URI whose entity no longer
// exists.
type NotFoundError struct {
	URI string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URI)
}

type static struct {
	descriptor protocol.ResourceDescriptor
	read       func(ctx context.Context) (any, error)
}

// Registry resolves resource URIs against the entity store and the
// activity feed.
type Registry struct {
	store   store.Store
	feed    *activity.Feed
	statics []static
}

// NewRegistry wires the static resource set over the given collaborators.
func NewRegistry(st store.Store, feed *activity.Feed) *Registry {
	r := &Registry{store: st, feed: feed}
	r.statics = []static{
		{
			descriptor: protocol.ResourceDescriptor{
				URI:         overviewURI,
				Name:        "Supply chain overview",
				Description: "Live counts and aggregates across facilities, shipments and contracts",
				MimeType:    "application/json",
			},
			read: r.readOverview,
		},
		{
			descriptor: protocol.ResourceDescriptor{
				URI:         recentURI,
				Name:        "Recent shipments",
				Description: fmt.Sprintf("The %d most recently created shipments", recentShipmentLimit),
				MimeType:    "application/json",
			},
			read: r.readRecentShipments,
		},
		{
			descriptor: protocol.ResourceDescriptor{
				URI:         activityURI,
				Name:        "Server activity",
				Description: fmt.Sprintf("The last %d tool calls and mutations handled by this server", activityTailLimit),
				MimeType:    "application/json",
			},
			read: r.readActivity,
		},
	}
	return r
}

// List returns the static descriptors followed by one descriptor per
// facility currently in the store.
func (r *Registry) List(ctx context.Context) ([]protocol.ResourceDescriptor, error) {
	out := make([]protocol.ResourceDescriptor, 0, len(r.statics))
	for _, s := range r.statics {
		out = append(out, s.descriptor)
	}

	facilities, err := r.store.ListFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facilities for resources: %w", err)
	}
	for _, f := range facilities {
		out = append(out, protocol.ResourceDescriptor{
			URI:         facilityScheme + f.ID,
			Name:        f.Name,
			Description: fmt.Sprintf("Facility detail and shipment metrics for %s", f.Name),
			MimeType:    "application/json",
		})
	}
	return out, nil
}

// Read resolves a URI and renders its payload. Unmatched URIs and vanished
// entities come back as typed errors for the dispatcher to map.
func (r *Registry) Read(ctx context.Context, uri string) (protocol.ReadResourceResult, error) {
	for _, s := range r.statics {
		if s.descriptor.URI == uri {
			payload, err := s.read(ctx)
			if err != nil {
				return protocol.ReadResourceResult{}, err
			}
			return render(uri, payload)
		}
	}

	if id, ok := strings.CutPrefix(uri, facilityScheme); ok {
		if !store.ValidID(id) {
			return protocol.ReadResourceResult{}, &UnknownResourceError{URI: uri}
		}
		payload, err := r.readFacility(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return protocol.ReadResourceResult{}, &NotFoundError{URI: uri}
		}
		if err != nil {
			return protocol.ReadResourceResult{}, err
		}
		return render(uri, payload)
	}

	return protocol.ReadResourceResult{}, &UnknownResourceError{URI: uri}
}

func render(uri string, payload any) (protocol.ReadResourceResult, error) {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return protocol.ReadResourceResult{}, fmt.Errorf("encode resource %s: %w", uri, err)
	}
	return protocol.ReadResourceResult{
		Contents: []protocol.ResourceContents{{
			URI:      uri,
			MimeType: "application/json",
			Text:     string(text),
		}},
	}, nil
}

type statusCount struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

type overviewPayload struct {
	GeneratedAt       time.Time   `json:"generatedAt"`
	Facilities        statusCount `json:"facilities"`
	Shipments         statusCount `json:"shipments"`
	Contracts         statusCount `json:"contracts"`
	WeightInTransitKg float64     `json:"weightInTransitKg"`
}

// readOverview aggregates all three entity kinds. The three list calls are
// independent, so they run concurrently and join.
func (r *Registry) readOverview(ctx context.Context) (any, error) {
	var (
		facilities []store.Facility
		shipments  []store.Shipment
		contracts  []store.Contract
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		facilities, err = r.store.ListFacilities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		shipments, err = r.store.ListShipments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contracts, err = r.store.ListContracts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate overview: %w", err)
	}

	payload := overviewPayload{
		GeneratedAt: time.Now().UTC(),
		Facilities:  statusCount{Total: len(facilities), ByStatus: map[string]int{}},
		Shipments:   statusCount{Total: len(shipments), ByStatus: map[string]int{}},
		Contracts:   statusCount{Total: len(contracts), ByStatus: map[string]int{}},
	}
	for _, f := range facilities {
		payload.Facilities.ByStatus[f.Status]++
	}
	for _, sh := range shipments {
		payload.Shipments.ByStatus[sh.Status]++
		if sh.Status == store.ShipmentInTransit || sh.Status == store.ShipmentDelayed {
			payload.WeightInTransitKg += sh.WeightKg
		}
	}
	for _, c := range contracts {
		payload.Contracts.ByStatus[c.Status]++
	}
	return payload, nil
}

type recentShipmentsPayload struct {
	Count     int              `json:"count"`
	Shipments []store.Shipment `json:"shipments"`
}

func (r *Registry) readRecentShipments(ctx context.Context) (any, error) {
	shipments, err := r.store.RecentShipments(ctx, recentShipmentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent shipments: %w", err)
	}
	return recentShipmentsPayload{Count: len(shipments), Shipments: shipments}, nil
}

type activityEntry struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

type activityPayload struct {
	Count   int             `json:"count"`
	Entries []activityEntry `json:"entries"`
}

func (r *Registry) readActivity(ctx context.Context) (any, error) {
	tail := r.feed.Tail(activityTailLimit)
	entries := make([]activityEntry, 0, len(tail))
	for _, e := range tail {
		entries = append(entries, activityEntry{At: e.At, Kind: e.Kind, Message: e.Message})
	}
	return activityPayload{Count: len(entries), Entries: entries}, nil
}

type facilityMetrics struct {
	InboundShipments  int     `json:"inboundShipments"`
	OutboundShipments int     `json:"outboundShipments"`
	DelayedShipments  int     `json:"delayedShipments"`
	OpenShipments     int     `json:"openShipments"`
	Contracts         int     `json:"contracts"`
	ActiveContracts   int     `json:"activeContracts"`
	AvgRatePerKg      float64 `json:"avgRatePerKg"`
}

type facilityPayload struct {
	Facility store.Facility  `json:"facility"`
	Metrics  facilityMetrics `json:"metrics"`
}

// readFacility loads the facility plus its shipment and contract metrics.
// The three reads are independent and join concurrently.
func (r *Registry) readFacility(ctx context.Context, id string) (any, error) {
	var (
		fac       store.Facility
		shipments []store.Shipment
		contracts []store.Contract
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fac, err = r.store.GetFacility(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		shipments, err = r.store.ListShipmentsByFacility(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		contracts, err = r.store.ListContractsByFacility(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics := facilityMetrics{Contracts: len(contracts)}
	for _, sh := range shipments {
		if sh.DestinationID == id {
			metrics.InboundShipments++
		}
		if sh.OriginID == id {
			metrics.OutboundShipments++
		}
		switch sh.Status {
		case store.ShipmentDelayed:
			metrics.DelayedShipments++
			metrics.OpenShipments++
		case store.ShipmentPending, store.ShipmentInTransit:
			metrics.OpenShipments++
		}
	}
	var rateSum float64
	for _, c := range contracts {
		if c.Status == store.ContractActive {
			metrics.ActiveContracts++
		}
		rateSum += c.RatePerKg
	}
	if len(contracts) > 0 {
		metrics.AvgRatePerKg = rateSum / float64(len(contracts))
	}

	return facilityPayload{Facility: fac, Metrics: metrics}, nil
}
