// Package graph renders the routing topology of a roster as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/specialist"
)

// Overlay highlights a live thread on the graph.
type Overlay struct {
	Stack  domain.DialogStack
	Active domain.AgentID
}

// OverlayFor builds the overlay of a conversation snapshot.
func OverlayFor(conv *domain.Conversation) *Overlay {
	if conv == nil {
		return nil
	}
	return &Overlay{Stack: conv.DialogStack, Active: conv.Active()}
}

// GenerateMermaid produces a Mermaid flowchart of the roster:
// - Router: ((Circle))
// - Specialist: [Rectangle]
// - Tool: [[Subroutine]], sensitive tools marked with a lock
// Transfers are labelled with their tool; escalations return on dotted lines.
func GenerateMermaid(roster *specialist.Roster, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	router, _ := roster.Agent(domain.Router)
	routerID := sanitizeMermaidID(string(domain.Router))
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", routerID, label(router))
	writeTools(&sb, routerID, router)

	for _, cfg := range roster.Specialists() {
		id := sanitizeMermaidID(string(cfg.ID))
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", id, label(cfg))
		if cfg.Transfer != nil {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", routerID, quote(cfg.Transfer.Tool), id)
		}
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, specialist.EscalationTool, routerID)
		writeTools(&sb, id, cfg)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on both light and dark themes.
		sb.WriteString("    classDef stacked fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, agent := range overlay.Stack {
			id := sanitizeMermaidID(string(agent))
			if id == "" || seen[id] || agent == overlay.Active {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s stacked;\n", id)
		}
		if overlay.Active != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Active)))
		}
	}

	return sb.String()
}

func writeTools(sb *strings.Builder, owner string, cfg specialist.Config) {
	for _, tool := range cfg.SafeTools {
		fmt.Fprintf(sb, "    %s --- %s[[\"%s\"]]\n", owner, toolID(owner, tool), quote(tool))
	}
	for _, tool := range cfg.SensitiveTools {
		fmt.Fprintf(sb, "    %s --- %s[[\"🔒 %s\"]]\n", owner, toolID(owner, tool), quote(tool))
	}
}

func label(cfg specialist.Config) string {
	if cfg.Name != "" {
		return quote(cfg.Name)
	}
	return quote(string(cfg.ID))
}

func toolID(owner, tool string) string {
	return owner + "__" + sanitizeMermaidID(tool)
}

func quote(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
