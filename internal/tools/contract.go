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

var contractStatuses = []string{
	store.ContractActive,
	store.ContractExpired,
	store.ContractTerminated,
}

// ContractTools returns the carrier contract tools backed by the store.
func ContractTools(st store.Store) []Tool {
	return []Tool{
		createContract(st),
		listContracts(st),
		terminateContract(st),
	}
}

func createContract(st store.Store) Tool {
	type args struct {
		Carrier        string  `json:"carrier"`
		FacilityID     string  `json:"facility_id"`
		RatePerKg      float64 `json:"rate_per_kg"`
		DurationMonths int     `json:"duration_months"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "create_contract",
			Description: "Sign a carrier contract for one facility.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"carrier":         {Type: "string", Description: "Carrier name"},
					"facility_id":     {Type: "string", Description: "Facility the contract covers"},
					"rate_per_kg":     {Type: "number", Description: "Agreed rate per kilogram"},
					"duration_months": {Type: "integer", Description: "Contract length; defaults to 12"},
				},
				Required: []string{"carrier", "facility_id", "rate_per_kg"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}
			if a.RatePerKg <= 0 {
				return protocol.CallResult{}, fmt.Errorf("rate_per_kg must be positive, got %v", a.RatePerKg)
			}
			if a.DurationMonths <= 0 {
				a.DurationMonths = 12
			}

			if _, err := st.GetFacility(ctx, a.FacilityID); err != nil {
				return protocol.CallResult{}, err
			}

			now := time.Now().UTC()
			created, err := st.CreateContract(ctx, store.Contract{
				Carrier:    a.Carrier,
				FacilityID: a.FacilityID,
				RatePerKg:  a.RatePerKg,
				Status:     store.ContractActive,
				StartsAt:   now,
				EndsAt:     now.AddDate(0, a.DurationMonths, 0),
			})
			if err != nil {
				return protocol.CallResult{}, err
			}
			return textResult("Contract created:\n" + jsonBlock(created)), nil
		},
	}
}

func listContracts(st store.Store) Tool {
	type args struct {
		Carrier    string `json:"carrier"`
		FacilityID string `json:"facility_id"`
		Status     string `json:"status"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "list_contracts",
			Description: "List carrier contracts, optionally filtered by carrier, facility or status.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"carrier":     {Type: "string", Description: "Only this carrier's contracts"},
					"facility_id": {Type: "string", Description: "Only contracts covering this facility"},
					"status":      {Type: "string", Enum: contractStatuses, Description: "Only contracts with this status"},
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

			var contracts []store.Contract
			var err error
			if a.FacilityID != "" {
				contracts, err = st.ListContractsByFacility(ctx, a.FacilityID)
			} else {
				contracts, err = st.ListContracts(ctx)
			}
			if err != nil {
				return protocol.CallResult{}, err
			}

			kept := contracts[:0]
			for _, c := range contracts {
				if a.Carrier != "" && !strings.EqualFold(c.Carrier, a.Carrier) {
					continue
				}
				if a.Status != "" && c.Status != a.Status {
					continue
				}
				kept = append(kept, c)
			}
			contracts = kept
			if len(contracts) == 0 {
				return textResult("No contracts found."), nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d contracts:\n", len(contracts))
			for _, c := range contracts {
				fmt.Fprintf(&b, "- %s %s facility=%s rate=%.3f/kg status=%s ends=%s\n",
					c.ID, c.Carrier, c.FacilityID, c.RatePerKg, c.Status, c.EndsAt.Format("2006-01-02"))
			}
			b.WriteString("\nRaw:\n")
			b.WriteString(jsonBlock(contracts))
			return textResult(b.String()), nil
		},
	}
}

func terminateContract(st store.Store) Tool {
	type args struct {
		ID string `json:"id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "terminate_contract",
			Description: "Terminate a carrier contract ahead of its end date.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"id": {Type: "string", Description: "Contract id"},
				},
				Required: []string{"id"},
			},
		},
		invoke: func(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
			var a args
			if err := json.Unmarshal(raw, &a); err != nil {
				return protocol.CallResult{}, fmt.Errorf("decode arguments: %w", err)
			}

			c, err := st.GetContract(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}
			if c.Status != store.ContractActive {
				return protocol.CallResult{}, fmt.Errorf("contract %s is %s, only active contracts can be terminated", c.ID, c.Status)
			}

			c.Status = store.ContractTerminated
			c.EndsAt = time.Now().UTC()
			if err := st.UpdateContract(ctx, c); err != nil {
				return protocol.CallResult{}, err
			}
			return textResult(fmt.Sprintf("Contract %s with %s terminated.", c.ID, c.Carrier)), nil
		},
	}
}
