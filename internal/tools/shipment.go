package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

var shipmentStatuses = []string{
	store.ShipmentPending,
	store.ShipmentInTransit,
	store.ShipmentDelayed,
	store.ShipmentDelivered,
	store.ShipmentLost,
}

// ShipmentTools returns the shipment management tools backed by the store.
func ShipmentTools(st store.Store) []Tool {
	return []Tool{
		createShipment(st),
		getShipment(st),
		listShipments(st),
		updateShipmentStatus(st),
	}
}

func createShipment(st store.Store) Tool {
	type args struct {
		Reference     string  `json:"reference"`
		OriginID      string  `json:"origin_id"`
		DestinationID string  `json:"destination_id"`
		Carrier       string  `json:"carrier"`
		Contents      string  `json:"contents"`
		WeightKg      float64 `json:"weight_kg"`
		EtaDays       int     `json:"eta_days"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "create_shipment",
			Description: "Create a shipment between two existing facilities.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"reference":      {Type: "string", Description: "Human-readable reference, e.g. SHP-1042"},
					"origin_id":      {Type: "string", Description: "Origin facility id"},
					"destination_id": {Type: "string", Description: "Destination facility id"},
					"carrier":        {Type: "string", Description: "Carrier name"},
					"contents":       {Type: "string", Description: "What is being moved"},
					"weight_kg":      {Type: "number", Description: "Gross weight in kilograms"},
					"eta_days":       {Type: "integer", Description: "Expected days until delivery; defaults to 7"},
				},
				Required: []string{"reference", "origin_id", "destination_id", "carrier", "weight_kg"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}
			if a.WeightKg <= 0 {
				return protocol.CallResult{}, fmt.Errorf("weight_kg must be positive, got %v", a.WeightKg)
			}
			if a.OriginID == a.DestinationID {
				return protocol.CallResult{}, fmt.Errorf("origin and destination must differ")
			}
			if a.EtaDays <= 0 {
				a.EtaDays = 7
			}

			// Both endpoints must exist before the shipment is recorded.
			if _, err := st.GetFacility(ctx, a.OriginID); err != nil {
				return protocol.CallResult{}, fmt.Errorf("origin: %w", err)
			}
			if _, err := st.GetFacility(ctx, a.DestinationID); err != nil {
				return protocol.CallResult{}, fmt.Errorf("destination: %w", err)
			}

			created, err := st.CreateShipment(ctx, store.Shipment{
				Reference:     a.Reference,
				OriginID:      a.OriginID,
				DestinationID: a.DestinationID,
				Carrier:       a.Carrier,
				Contents:      a.Contents,
				WeightKg:      a.WeightKg,
				Status:        store.ShipmentPending,
				EtaDays:       a.EtaDays,
			})
			if err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Shipment created:\n" + jsonBlock(created)), nil
		},
	}
}

func getShipment(st store.Store) Tool {
	type args struct {
		ID string `json:"id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "get_shipment",
			Description: "Fetch one shipment by its 24-character hex id.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id": {Type: "string", Description: "Shipment id"},
				},
				Required: []string{"id"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}
			if !store.ValidID(a.ID) {
				return protocol.CallResult{}, fmt.Errorf("id must be a 24-character hex string")
			}

			sh, err := st.GetShipment(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Shipment:\n" + jsonBlock(sh)), nil
		},
	}
}

func listShipments(st store.Store) Tool {
	type args struct {
		Status     string `json:"status"`
		FacilityID string `json:"facility_id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "list_shipments",
			Description: "List shipments in creation order, optionally filtered by status or by a facility they touch.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"status":      {Type: "string", Enum: shipmentStatuses, Description: "Only shipments with this status"},
					"facility_id": {Type: "string", Description: "Only shipments originating from or destined to this facility"},
				},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &a); err != nil {
					return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
				}
			}

			var shipments []store.Shipment
			var err error
			if a.FacilityID != "" {
				shipments, err = st.ListShipmentsByFacility(ctx, a.FacilityID)
			} else {
				shipments, err = st.ListShipments(ctx)
			}
			if err != nil {
				return protocol.CallResult{}, err
			}
			if a.Status != "" {
				kept := shipments[:0]
				for _, sh := range shipments {
					if sh.Status == a.Status {
						kept = append(kept, sh)
					}
				}
				shipments = kept
			}
			if len(shipments) == 0 {
				return textResult("No shipments found."), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d shipments:\n", len(shipments))
			for _, sh := range shipments {
				fmt.Fprintf(&b, "- %s %s %s->%s carrier=%s status=%s eta=%dd\n",
					sh.ID, sh.Reference, sh.OriginID, sh.DestinationID, sh.Carrier, sh.Status, sh.EtaDays)
			}
			b.WriteString("\nRaw:\n")
			b.WriteString(jsonBlock(shipments))
			return textResult(b.String()), nil
		},
	}
}

func updateShipmentStatus(st store.Store) Tool {
	type args struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		EtaDays *int   `json:"eta_days"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "update_shipment_status",
			Description: "Move a shipment to a new status, optionally revising its ETA.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id":       {Type: "string", Description: "Shipment id"},
					"status":   {Type: "string", Enum: shipmentStatuses, Description: "New status"},
					"eta_days": {Type: "integer", Description: "Revised days until delivery"},
				},
				Required: []string{"id", "status"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}

			sh, err := st.GetShipment(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			if sh.Status == store.ShipmentDelivered || sh.Status == store.ShipmentLost {
				return protocol.CallResult{}, fmt.Errorf("shipment %s is already %s", sh.ID, sh.Status)
			}

			previous := sh.Status
			sh.Status = a.Status
			if a.EtaDays != nil {
				sh.EtaDays = *a.EtaDays
			}
			sh.UpdatedAt = time.Now().UTC()
			if err := st.UpdateShipment(ctx, sh); err != nil {
				return protocol.CallResult{}, err
			}
			return textResult(fmt.Sprintf("Shipment %s status: %s -> %s (eta %dd)", sh.ID, previous, sh.Status, sh.EtaDays)), nil
		},
	}
}
