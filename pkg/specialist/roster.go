package specialist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

// PromptData is what an agent prompt template can reference.
type PromptData struct {
	Name string
	// Now is the current time, already formatted.
	Now string
	// UserInfo is the rendered user-context snapshot.
	UserInfo string
}

type agent struct {
	cfg    Config
	prompt *template.Template
	tools  map[string]registry.Tool
	specs  []domain.ToolSpec
}

// Roster is the immutable set of agents the engine routes between.
type Roster struct {
	reg       *registry.Registry
	order     []domain.AgentID
	agents    map[domain.AgentID]*agent
	transfers map[string]domain.AgentID
	signals   map[string]*registry.Schema
}

// NewRoster validates the configs against reg and compiles their prompts.
// A tool listed as safe but tagged sensitive in the registry is rejected:
// mutating tools are gated wherever they appear.
func NewRoster(reg *registry.Registry, router Config, specialists ...Config) (*Roster, error) {
	if router.ID == "" {
		router.ID = domain.Router
	}
	if router.ID != domain.Router {
		return nil, fmt.Errorf("router config must use id %q, got %q", domain.Router, router.ID)
	}

	r := &Roster{
		reg:       reg,
		agents:    make(map[domain.AgentID]*agent),
		transfers: make(map[string]domain.AgentID),
		signals:   make(map[string]*registry.Schema),
	}

	var errs []error
	if err := r.compileSignal(escalationSpec()); err != nil {
		errs = append(errs, err)
	}
	for _, cfg := range specialists {
		if cfg.ID == "" || cfg.ID == domain.Router {
			errs = append(errs, fmt.Errorf("specialist %q: invalid id", cfg.ID))
			continue
		}
		if _, dup := r.agents[cfg.ID]; dup {
			errs = append(errs, fmt.Errorf("specialist %q: duplicate id", cfg.ID))
			continue
		}
		if cfg.Transfer == nil || cfg.Transfer.Tool == "" {
			errs = append(errs, fmt.Errorf("specialist %q: missing transfer tool", cfg.ID))
			continue
		}
		if _, dup := r.transfers[cfg.Transfer.Tool]; dup {
			errs = append(errs, fmt.Errorf("specialist %q: transfer tool %q already taken", cfg.ID, cfg.Transfer.Tool))
			continue
		}
		a, err := r.build(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.compileSignal(transferSpec(cfg.Transfer)); err != nil {
			errs = append(errs, fmt.Errorf("specialist %q: %w", cfg.ID, err))
			continue
		}
		a.specs = append(a.specs, escalationSpec())
		r.agents[cfg.ID] = a
		r.order = append(r.order, cfg.ID)
		r.transfers[cfg.Transfer.Tool] = cfg.ID
	}

	ra, err := r.build(router)
	if err != nil {
		errs = append(errs, err)
	} else {
		for _, id := range r.order {
			ra.specs = append(ra.specs, transferSpec(r.agents[id].cfg.Transfer))
		}
		r.agents[domain.Router] = ra
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Roster) compileSignal(spec domain.ToolSpec) error {
	schema, err := registry.CompileSchema(spec.Name, spec.Parameters)
	if err != nil {
		return err
	}
	r.signals[spec.Name] = schema
	return nil
}

func (r *Roster) build(cfg Config) (*agent, error) {
	tmpl, err := template.New(string(cfg.ID)).Option("missingkey=zero").Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("agent %q: prompt: %w", cfg.ID, err)
	}

	a := &agent{cfg: cfg, prompt: tmpl, tools: make(map[string]registry.Tool)}

	safe, err := r.reg.Select(cfg.SafeTools...)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", cfg.ID, err)
	}
	for _, t := range safe {
		if t.Capability == domain.Sensitive {
			return nil, fmt.Errorf("agent %q: tool %q is sensitive and cannot be bound as safe", cfg.ID, t.Name)
		}
		a.tools[t.Name] = t
		a.specs = append(a.specs, t.Spec())
	}

	sensitive, err := r.reg.Select(cfg.SensitiveTools...)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", cfg.ID, err)
	}
	for _, t := range sensitive {
		t.Capability = domain.Sensitive
		a.tools[t.Name] = t
		a.specs = append(a.specs, t.Spec())
	}
	return a, nil
}

// Agent returns the config of id.
func (r *Roster) Agent(id domain.AgentID) (Config, bool) {
	a, ok := r.agents[id]
	if !ok {
		return Config{}, false
	}
	return a.cfg, true
}

// Specialists returns the specialist configs in registration order.
func (r *Roster) Specialists() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].cfg)
	}
	return out
}

// MaxDepth is the largest dialog stack the roster allows: one frame per specialist.
func (r *Roster) MaxDepth() int { return len(r.order) }

// Prompt renders the system prompt of id.
func (r *Roster) Prompt(id domain.AgentID, data PromptData) (string, error) {
	a, ok := r.agents[id]
	if !ok {
		return "", fmt.Errorf("unknown agent %q", id)
	}
	data.Name = a.cfg.Name
	var buf bytes.Buffer
	if err := a.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("agent %q: rendering prompt: %w", id, err)
	}
	return buf.String(), nil
}

// Tools returns the specs bound to id: its own tools followed by its signal tools.
func (r *Roster) Tools(id domain.AgentID) []domain.ToolSpec {
	a, ok := r.agents[id]
	if !ok {
		return nil
	}
	return append([]domain.ToolSpec(nil), a.specs...)
}

// Capability returns the tag of a tool bound to id. Unknown names report false.
func (r *Roster) Capability(id domain.AgentID, name string) (domain.Capability, bool) {
	a, ok := r.agents[id]
	if !ok {
		return "", false
	}
	t, ok := a.tools[name]
	if !ok {
		return "", false
	}
	return t.Capability, true
}

// Signal interprets call as a routing signal of id, if it is one.
// Specialists only escalate and the router only transfers; anything else is
// left to tool execution. A signal call whose arguments fail its schema is
// not a signal either: Execute answers it with the validation error.
func (r *Roster) Signal(id domain.AgentID, call domain.ToolCall) (domain.Signal, bool) {
	sig, err := r.signal(id, call)
	return sig, sig != nil && err == nil
}

// signal returns nil, nil when call is not a signal tool of id.
func (r *Roster) signal(id domain.AgentID, call domain.ToolCall) (domain.Signal, error) {
	var target domain.AgentID
	if id == domain.Router {
		t, ok := r.transfers[call.Name]
		if !ok {
			return nil, nil
		}
		target = t
	} else if call.Name != EscalationTool {
		return nil, nil
	}

	if err := r.signals[call.Name].Validate(call.Args); err != nil {
		return nil, err
	}
	if id == domain.Router {
		return parseTransfer(call, target, r.agents[target].cfg.Transfer), nil
	}
	esc, err := parseEscalation(call)
	if err != nil {
		return nil, domain.NewToolError(domain.ErrInvalidArguments, call.Name, "%v", err)
	}
	return esc, nil
}

// Execute runs a tool bound to id. A tool of another agent is reported as not found.
func (r *Roster) Execute(ctx context.Context, id domain.AgentID, call domain.ToolCall) (any, error) {
	if _, ok := r.Capability(id, call.Name); !ok {
		if _, err := r.signal(id, call); err != nil {
			return nil, err
		}
		return nil, domain.NewToolError(domain.ErrToolNotFound, call.Name, "%s is not a valid tool, try one of the available tools", call.Name)
	}
	ctx = registry.WithCaller(ctx, callerWithAgent(ctx, id))
	return r.reg.Execute(ctx, call.Name, call.Args)
}

func callerWithAgent(ctx context.Context, id domain.AgentID) registry.Caller {
	c, _ := registry.CallerFrom(ctx)
	c.Agent = id
	return c
}
