package prompts

import (
	"strings"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

func facilityBriefing() entry {
	return entry{
		descriptor: protocol.PromptDescriptor{
			Name:        "facility-briefing",
			Description: "Prepare an operational briefing for a single facility",
			Arguments: []protocol.PromptArgument{
				{Name: "facility_id", Description: "24-character hex id of the facility", Required: true},
				{Name: "focus", Description: "Aspect to emphasize, e.g. operations, throughput, contracts", Default: "operations"},
			},
		},
		render: func(args map[string]string) string {
			var b strings.Builder
			b.WriteString("Prepare a briefing for facility ")
			b.WriteString(args["facility_id"])
			b.WriteString(" with a focus on ")
			b.WriteString(args["focus"])
			b.WriteString(".\n\n")
			b.WriteString("Gather the data yourself:\n")
			b.WriteString("- Call get_facility with the id above for the current record.\n")
			b.WriteString("- Call list_shipments and keep only shipments touching this facility.\n")
			b.WriteString("- Call list_contracts for carrier agreements tied to this facility.\n\n")
			b.WriteString("Structure the briefing as:\n")
			b.WriteString("1. Status summary (one paragraph).\n")
			b.WriteString("2. Active shipment load, inbound vs outbound.\n")
			b.WriteString("3. Contract coverage and rate exposure.\n")
			b.WriteString("4. Risks and recommended actions for the chosen focus area.")
			return b.String()
		},
	}
}

func shipmentDelayReview() entry {
	return entry{
		descriptor: protocol.PromptDescriptor{
			Name:        "shipment-delay-review",
			Description: "Review a shipment's delay and propose recovery steps",
			Arguments: []protocol.PromptArgument{
				{Name: "shipment_id", Description: "24-character hex id of the shipment", Required: true},
				{Name: "window_days", Description: "How many days of history to consider", Default: "7"},
			},
		},
		render: func(args map[string]string) string {
			var b strings.Builder
			b.WriteString("Review the delay of shipment ")
			b.WriteString(args["shipment_id"])
			b.WriteString(" over the last ")
			b.WriteString(args["window_days"])
			b.WriteString(" days.\n\n")
			b.WriteString("Gather the data yourself:\n")
			b.WriteString("- Call get_shipment with the id above.\n")
			b.WriteString("- Call get_facility for its origin and destination.\n")
			b.WriteString("- Call assess_shipment_risk with the same id for a risk score.\n\n")
			b.WriteString("Then answer:\n")
			b.WriteString("1. How far behind the original ETA is the shipment?\n")
			b.WriteString("2. Which leg (origin handling, transit, destination) is the bottleneck?\n")
			b.WriteString("3. Concrete recovery options, cheapest first.\n")
			b.WriteString("4. Whether the receiving facility should be warned now.")
			return b.String()
		},
	}
}

func carrierNegotiationBrief() entry {
	return entry{
		descriptor: protocol.PromptDescriptor{
			Name:        "carrier-negotiation-brief",
			Description: "Prepare a negotiation brief for an upcoming carrier renewal",
			Arguments: []protocol.PromptArgument{
				{Name: "carrier", Description: "Carrier name as it appears on contracts", Required: true},
				{Name: "objective", Description: "Primary negotiation objective", Default: "cost reduction"},
			},
		},
		render: func(args map[string]string) string {
			var b strings.Builder
			b.WriteString("Prepare a negotiation brief for carrier ")
			b.WriteString(args["carrier"])
			b.WriteString(". Primary objective: ")
			b.WriteString(args["objective"])
			b.WriteString(".\n\n")
			b.WriteString("Gather the data yourself:\n")
			b.WriteString("- Call list_contracts and keep only this carrier's agreements.\n")
			b.WriteString("- Call list_shipments and compute this carrier's share of volume.\n")
			b.WriteString("- Call recommend_carrier to see how the carrier ranks against alternatives.\n\n")
			b.WriteString("Structure the brief as:\n")
			b.WriteString("1. Current spend and rate per kg versus the network average.\n")
			b.WriteString("2. Service record: delays and losses attributable to this carrier.\n")
			b.WriteString("3. Leverage points supporting the objective.\n")
			b.WriteString("4. Walk-away position and fallback carriers.")
			return b.String()
		},
	}
}
