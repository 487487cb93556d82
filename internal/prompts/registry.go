// Package prompts holds the server's prompt templates. Rendering is pure
// text work: templates tell the consumer which tools to call for live data
// rather than fetching anything themselves.
package prompts

import (
	"fmt"
	"sort"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

// UnknownPromptError reports a prompts/get for a name that was never
// registered.
type UnknownPromptError struct {
	Name string
}

func (e *UnknownPromptError) Error() string {
	return fmt.Sprintf("unknown prompt: %s", e.Name)
}

// MissingArgumentError reports a required template argument the caller did
// not supply.
type MissingArgumentError struct {
	Prompt   string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("prompt %s: missing required argument %q", e.Prompt, e.Argument)
}

type entry struct {
	descriptor protocol.PromptDescriptor
	render     func(args map[string]string) string
}

// Registry holds immutable prompt templates in registration order.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry builds the registry with every template this server offers.
func NewRegistry() *Registry {
	r := &Registry{entries: map[string]entry{}}
	r.register(facilityBriefing())
	r.register(shipmentDelayReview())
	r.register(carrierNegotiationBrief())
	return r
}

func (r *Registry) register(e entry) {
	name := e.descriptor.Name
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("prompt %q registered twice", name))
	}
	r.order = append(r.order, name)
	r.entries[name] = e
}

// List returns every prompt descriptor in registration order.
func (r *Registry) List() []protocol.PromptDescriptor {
	out := make([]protocol.PromptDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// Generate renders the named template. Optional arguments absent from args
// are filled with their declared defaults; a missing required argument or an
// unknown name is the caller's mistake and returns a typed error.
func (r *Registry) Generate(name string, args map[string]string) (protocol.GetPromptResult, error) {
	e, ok := r.entries[name]
	if !ok {
		return protocol.GetPromptResult{}, &UnknownPromptError{Name: name}
	}

	filled := make(map[string]string, len(args))
	for k, v := range args {
		filled[k] = v
	}
	for _, arg := range e.descriptor.Arguments {
		if _, supplied := filled[arg.Name]; supplied {
			continue
		}
		if arg.Required {
			return protocol.GetPromptResult{}, &MissingArgumentError{Prompt: name, Argument: arg.Name}
		}
		filled[arg.Name] = arg.Default
	}

	return protocol.GetPromptResult{
		Description: e.descriptor.Description,
		Messages: []protocol.PromptMessage{{
			Role:    "user",
			Content: protocol.ContentPart{Type: "text", Text: e.render(filled)},
		}},
	}, nil
}

// Names returns the registered prompt names, sorted, for log lines.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}
