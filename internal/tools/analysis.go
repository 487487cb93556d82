package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/sampling"
	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/store"
)

// AnalysisTools returns the generative analysis tools. Each one asks the
// client-side model through the bridge and falls back to a deterministic
// computation when sampling is unavailable or times out.
func AnalysisTools(st store.Store, bridge *sampling.Bridge) []Tool {
	return []Tool{
		analyzeSupplyChain(st, bridge),
		assessShipmentRisk(st, bridge),
		recommendCarrier(st, bridge),
	}
}

type networkSnapshot struct {
	Facilities []store.Facility `json:"facilities"`
	Shipments  []store.Shipment `json:"shipments"`
	Contracts  []store.Contract `json:"contracts"`
}

// loadSnapshot fetches all three entity kinds concurrently. The reads are
// independent, so there is no cross-read snapshot guarantee; callers get
// whatever the store holds while each read runs.
func loadSnapshot(ctx context.Context, st store.Store) (networkSnapshot, error) {
	var snap networkSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Facilities, err = st.ListFacilities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Shipments, err = st.ListShipments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Contracts, err = st.ListContracts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return networkSnapshot{}, err
	}
	return snap, nil
}

func analyzeSupplyChain(st store.Store, bridge *sampling.Bridge) Tool {
	type args struct {
		Question string `json:"question"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "analyze_supply_chain",
			Description: "Analyze the current state of the network, optionally answering a specific question.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"question": {Type: "string", Description: "Specific question to answer; defaults to a general health review"},
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
			question := a.Question
			if question == "" {
				question = "Review the overall health of this supply chain network."
			}

			snap, err := loadSnapshot(ctx, st)
			if err != nil {
				return protocol.CallResult{}, err
			}

			// Bridge failures of any flavor stay inside this handler; the
			// deterministic summary stands in for the generated one.
			analysis, err := bridge.Analyze(ctx, question, snap)
			if err != nil {
				return textResult(deterministicAnalysis(snap, err)), nil
			}
			return textResult("Analysis:\n" + analysis), nil
		},
	}
}

func deterministicAnalysis(snap networkSnapshot, cause error) string {
	operational := 0
	for _, f := range snap.Facilities {
		if f.Status == store.FacilityOperational {
			operational++
		}
	}
	delayed, open := 0, 0
	var movingWeight float64
	for _, sh := range snap.Shipments {
		switch sh.Status {
		case store.ShipmentDelayed:
			delayed++
			open++
			movingWeight += sh.WeightKg
		case store.ShipmentPending, store.ShipmentInTransit:
			open++
			movingWeight += sh.WeightKg
		}
	}
	active := 0
	for _, c := range snap.Contracts {
		if c.Status == store.ContractActive {
			active++
		}
	}

	var b strings.Builder
	b.WriteString("Deterministic summary (")
	b.WriteString(fallbackCause(cause))
	b.WriteString("):\n")
	fmt.Fprintf(&b, "- %d facilities, %d operational\n", len(snap.Facilities), operational)
	fmt.Fprintf(&b, "- %d open shipments (%d delayed), %.1f kg moving\n", open, delayed, movingWeight)
	fmt.Fprintf(&b, "- %d active contracts of %d total\n", active, len(snap.Contracts))
	if delayed > 0 {
		b.WriteString("- Attention: delayed shipments need carrier follow-up\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func fallbackCause(err error) string {
	switch {
	case errors.Is(err, sampling.ErrUnavailable):
		return "sampling unavailable"
	case errors.Is(err, sampling.ErrTimeout):
		return "sampling timed out"
	default:
		return "sampling failed"
	}
}

func assessShipmentRisk(st store.Store, bridge *sampling.Bridge) Tool {
	type args struct {
		ID string `json:"id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "assess_shipment_risk",
			Description: "Score the delivery risk of one shipment from 0 (safe) to 100 (certain failure).",
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

			sh, err := st.GetShipment(ctx, a.ID)
			if err != nil {
				return protocol.CallResult{}, err
			}

			// Origin and destination reads are independent; fetch both at once.
			var origin, destination store.Facility
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				origin, err = st.GetFacility(gctx, sh.OriginID)
				return err
			})
			g.Go(func() error {
				var err error
				destination, err = st.GetFacility(gctx, sh.DestinationID)
				return err
			})
			if err := g.Wait(); err != nil {
				return protocol.CallResult{}, err
			}

			subject := fmt.Sprintf("shipment %s (%s, %.1f kg, %s) from %s to %s",
				sh.Reference, sh.Contents, sh.WeightKg, sh.Status, origin.Name, destination.Name)
			payload := map[string]any{
				"shipment":    sh,
				"origin":      origin,
				"destination": destination,
			}

			assessment, err := bridge.ScoreRisk(ctx, subject, payload)
			if err != nil {
				score, reasoning := fallbackRisk(sh, origin, destination)
				return textResult(fmt.Sprintf("Risk score: %d/100 (%s)\nReasoning: %s",
					score, fallbackCause(err), reasoning)), nil
			}
			return textResult(fmt.Sprintf("Risk score: %d/100\nReasoning: %s",
				assessment.Score, assessment.Reasoning)), nil
		},
	}
}

// fallbackRisk is the non-generative scoring rule: status carries most of
// the weight, degraded endpoints and long ETAs add to it.
func fallbackRisk(sh store.Shipment, origin, destination store.Facility) (int, string) {
	score := 10
	switch sh.Status {
	case store.ShipmentPending:
		score = 20
	case store.ShipmentInTransit:
		score = 35
	case store.ShipmentDelayed:
		score = 70
	case store.ShipmentDelivered:
		score = 5
	case store.ShipmentLost:
		score = 100
	}

	var factors []string
	factors = append(factors, "status "+sh.Status)
	if sh.EtaDays > 14 {
		score += 10
		factors = append(factors, fmt.Sprintf("long eta %dd", sh.EtaDays))
	}
	for _, f := range []store.Facility{origin, destination} {
		if f.Status != store.FacilityOperational {
			score += 10
			factors = append(factors, f.Name+" "+f.Status)
		}
	}
	if score > 100 {
		score = 100
	}
	return score, "rule-based: " + strings.Join(factors, ", ")
}

func recommendCarrier(st store.Store, bridge *sampling.Bridge) Tool {
	type args struct {
		FacilityID string `json:"facility_id"`
	}

	return tool{
		descriptor: protocol.ToolDescriptor{
			Name:        "recommend_carrier",
			Description: "Recommend which carrier to use, network-wide or for one facility.",
			InputSchema: &protocol.JSONSchema{
				Type: "object",
				Properties: map[string]protocol.JSONSchema{
					"facility_id": {Type: "string", Description: "Scope the recommendation to this facility's contracts and shipments"},
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

			snap, err := loadSnapshot(ctx, st)
			if err != nil {
				return protocol.CallResult{}, err
			}
			if a.FacilityID != "" {
				snap = scopeToFacility(snap, a.FacilityID)
			}

			profiles := carrierProfiles(snap)
			if len(profiles) == 0 {
				return protocol.CallResult{}, errors.New("no carriers on file, create contracts or shipments first")
			}

			options := make([]string, len(profiles))
			for i, p := range profiles {
				options[i] = p.Name
			}

			question := "Which carrier should handle upcoming volume?"
			if a.FacilityID != "" {
				question = "Which carrier should handle upcoming volume for facility " + a.FacilityID + "?"
			}
			question += "\n\nCarrier records:\n" + jsonBlock(profiles)

			choice, err := bridge.ChooseOption(ctx, question, options)
			if err != nil {
				pick := profiles[deterministicPick(profiles)]
				basis := fmt.Sprintf("lowest average rate %.3f/kg over %d active contracts", pick.AvgRatePerKg, pick.Contracts)
				if pick.Contracts == 0 {
					basis = fmt.Sprintf("no contracted rates on file, first carrier by name with %d shipments", pick.Shipments)
				}
				return textResult(fmt.Sprintf("Recommended carrier: %s (%s)\nBasis: %s",
					pick.Name, fallbackCause(err), basis)), nil
			}
			return textResult(fmt.Sprintf("Recommended carrier: %s\nRationale: %s", choice.Option, choice.Rationale)), nil
		},
	}
}

func scopeToFacility(snap networkSnapshot, facilityID string) networkSnapshot {
	scoped := networkSnapshot{Facilities: snap.Facilities}
	for _, sh := range snap.Shipments {
		if sh.OriginID == facilityID || sh.DestinationID == facilityID {
			scoped.Shipments = append(scoped.Shipments, sh)
		}
	}
	for _, c := range snap.Contracts {
		if c.FacilityID == facilityID {
			scoped.Contracts = append(scoped.Contracts, c)
		}
	}
	return scoped
}

type carrierProfile struct {
	Name         string  `json:"name"`
	Contracts    int     `json:"contracts"`
	AvgRatePerKg float64 `json:"avgRatePerKg"`
	Shipments    int     `json:"shipments"`
	Delayed      int     `json:"delayed"`
	Lost         int     `json:"lost"`
}

// carrierProfiles aggregates per-carrier stats from active contracts and
// shipment history, ordered by name for stable option lists.
func carrierProfiles(snap networkSnapshot) []carrierProfile {
	byName := map[string]*carrierProfile{}
	get := func(name string) *carrierProfile {
		p, ok := byName[name]
		if !ok {
			p = &carrierProfile{Name: name}
			byName[name] = p
		}
		return p
	}

	rateSums := map[string]float64{}
	for _, c := range snap.Contracts {
		if c.Status != store.ContractActive {
			continue
		}
		p := get(c.Carrier)
		p.Contracts++
		rateSums[c.Carrier] += c.RatePerKg
	}
	for _, sh := range snap.Shipments {
		p := get(sh.Carrier)
		p.Shipments++
		switch sh.Status {
		case store.ShipmentDelayed:
			p.Delayed++
		case store.ShipmentLost:
			p.Lost++
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]carrierProfile, 0, len(names))
	for _, name := range names {
		p := byName[name]
		if p.Contracts > 0 {
			p.AvgRatePerKg = rateSums[name] / float64(p.Contracts)
		}
		out = append(out, *p)
	}
	return out
}

// deterministicPick prefers the cheapest contracted carrier; carriers with
// no contract rate rank behind any priced one, and name order breaks ties.
func deterministicPick(profiles []carrierProfile) int {
	best := 0
	for i, p := range profiles {
		current := profiles[best]
		switch {
		case current.Contracts == 0 && p.Contracts > 0:
			best = i
		case current.Contracts > 0 && p.Contracts > 0 && p.AvgRatePerKg < current.AvgRatePerKg:
			best = i
		}
	}
	return best
}
