package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

var facilityKinds = []string{"warehouse", "port", "depot", "factory"}

var facilityStatuses = []string{
	store.FacilityOperational,
	store.FacilityDegraded,
	store.FacilityOffline,
}

// FacilityTools returns the facility management tools backed by the store.
func FacilityTools(st store.Store) []Tool {
	return []Tool{
		createFacility(st),
		getFacility(st),
		listFacilities(st),
		updateFacilityStatus(st),
		deleteFacility(st),
	}
}

func createFacility(st store.Store) Tool {
	type args struct {
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Location string `json:"location"`
		Capacity int    `json:"capacity"`
		Status   string `json:"status"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "create_facility",
			Description: "Register a new facility (warehouse, port, depot or factory) in the network.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"name":     {Type: "string", Description: "Display name"},
					"kind":     {Type: "string", Enum: facilityKinds, Description: "Facility kind"},
					"location": {Type: "string", Description: "City and country, e.g. Rotterdam, NL"},
					"capacity": {Type: "integer", Description: "Nominal capacity in pallets"},
					"status":   {Type: "string", Enum: facilityStatuses, Description: "Initial status; defaults to operational"},
				},
				Required: []string{"name", "kind", "location"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}
			if a.Status == "" {
				a.Status = store.FacilityOperational
			}

			created, err := st.CreateFacility(ctx, store.Facility{
				Name:     a.Name,
				Kind:     a.Kind,
				Location: a.Location,
				Capacity: a.Capacity,
				Status:   a.Status,
			})
			if err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Facility created:\n" + jsonBlock(created)), nil
		},
	}
}

func getFacility(st store.Store) Tool {
	type args struct {
		ID string `json:"id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "get_facility",
			Description: "Fetch one facility by its 24-character hex id.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id": {Type: "string", Description: "Facility id"},
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

			f, err := st.GetFacility(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Facility:\n" + jsonBlock(f)), nil
		},
	}
}

func listFacilities(st store.Store) Tool {
	type args struct {
		Status string `json:"status"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "list_facilities",
			Description: "List facilities in creation order, optionally filtered by status.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"status": {Type: "string", Enum: facilityStatuses, Description: "Only facilities with this status"},
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

			facilities, err := st.ListFacilities(ctx)
			if err != nil {
				return protocol.CallResult{}, err
			}
			if a.Status != "" {
				kept := facilities[:0]
				for _, f := range facilities {
					if f.Status == a.Status {
						kept = append(kept, f)
					}
				}
				facilities = kept
			}
			if len(facilities) == 0 {
				return textResult("No facilities found."), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d facilities:\n", len(facilities))
			for _, f := range facilities {
				fmt.Fprintf(&b, "- %s %s (%s, %s) status=%s\n", f.ID, f.Name, f.Kind, f.Location, f.Status)
			}
			b.WriteString("\nRaw:\n")
			b.WriteString(jsonBlock(facilities))
			return textResult(b.String()), nil
		},
	}
}

func updateFacilityStatus(st store.Store) Tool {
	type args struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "update_facility_status",
			Description: "Change a facility's operational status.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id":     {Type: "string", Description: "Facility id"},
					"status": {Type: "string", Enum: facilityStatuses, Description: "New status"},
				},
				Required: []string{"id", "status"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}

			f, err := st.GetFacility(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			previous := f.Status
			f.Status = a.Status
			if err := st.UpdateFacility(ctx, f); err != nil {
				return protocol.CallResult{}, err
			}
			return textResult(fmt.Sprintf("Facility %s status: %s -> %s", f.ID, previous, f.Status)), nil
		},
	}
}

func deleteFacility(st store.Store) Tool {
	type args struct {
		ID string `json:"id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "delete_facility",
			Description: "Remove a facility from the network.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id": {Type: "string", Description: "Facility id"},
				},
				Required: []string{"id"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}

			shipments, err := st.ListShipmentsByFacility(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			open := 0
			for _, sh := range shipments {
				switch sh.Status {
				case store.ShipmentPending, store.ShipmentInTransit, store.ShipmentDelayed:
					open++
				}
			}
			if open > 0 {
				return protocol.CallResult{}, fmt.Errorf("facility %s still has %d open shipments", a.ID, open)
			}

			if err := st.DeleteFacility(ctx, a.ID); err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Facility " + a.ID + " deleted."), nil
		},
	}
}
