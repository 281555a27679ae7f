package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// GenerateMermaid renders the main loop of a project as a Mermaid flowchart.
// Blocks come first, in list order, followed by one subgraph per pin sequence,
// matching the order of the generated sketch. Shapes follow block types:
// - Condition: {Rhombus}
// - Action: [Rectangle]
// - Loop: [/Parallelogram/]
// - Delay: ([Stadium])
// Blocks that reference no configured pin are drawn with the "skipped" class,
// since code generation emits nothing for them.
func GenerateMermaid(snap *domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    loop((\"loop()\"))\n")

	prev := "loop"
	var skipped []string

	for _, b := range snap.Blocks {
		id := "b_" + sanitizeMermaidID(b.ID)
		text, resolved := blockLabel(snap, b)

		opener, closer := "[", "]"
		switch b.Type {
		case domain.BlockCondition:
			opener, closer = "{", "}"
		case domain.BlockLoop:
			opener, closer = "[/", "/]"
		case domain.BlockDelay:
			opener, closer = "([", "])"
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escape(text), closer))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))
		if !resolved {
			skipped = append(skipped, id)
		}
		prev = id
	}

	for _, pin := range snap.Pins() {
		steps := snap.Actions[pin]
		if len(steps) == 0 {
			continue
		}
		cfg := snap.Configs[pin]
		sb.WriteString(fmt.Sprintf("    subgraph pin%d [\"%s - GPIO %d\"]\n", pin, escape(cfg.Label), pin))
		for i, step := range steps {
			id := fmt.Sprintf("p%d_%d", pin, i)
			sb.WriteString(fmt.Sprintf("        %s[\"%s\"]\n", id, escape(stepLabel(step))))
			if i > 0 {
				sb.WriteString(fmt.Sprintf("        p%d_%d --> %s\n", pin, i-1, id))
			}
		}
		sb.WriteString("    end\n")
		sb.WriteString(fmt.Sprintf("    %s --> p%d_0\n", prev, pin))
		prev = fmt.Sprintf("p%d_%d", pin, len(steps)-1)
	}

	if prev != "loop" {
		sb.WriteString(fmt.Sprintf("    %s -.-> loop\n", prev))
	}

	if len(skipped) > 0 {
		sb.WriteString("\n    %% Blocks without a configured pin\n")
		sb.WriteString("    classDef skipped fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4 4,color:#000;\n")
		for _, id := range skipped {
			sb.WriteString(fmt.Sprintf("    class %s skipped;\n", id))
		}
	}

	return sb.String()
}

// blockLabel describes a block and reports whether its pin reference resolves.
func blockLabel(snap *domain.Snapshot, b domain.Block) (string, bool) {
	switch b.Type {
	case domain.BlockCondition:
		if b.Condition == nil {
			return "if ?", false
		}
		name, ok := pinName(snap, b.Condition.Pin)
		return fmt.Sprintf("if %s %s %s", name, b.Condition.Operator, b.Condition.Value), ok
	case domain.BlockAction:
		if b.Action == nil {
			return "?", false
		}
		name, ok := pinName(snap, b.Action.Pin)
		action := string(b.Action.Action)
		if action == "" {
			action, ok = "?", false
		}
		return fmt.Sprintf("%s: %s", name, action), ok
	case domain.BlockLoop:
		count := domain.DefaultLoopCount
		if b.Loop != nil {
			count = b.Loop.Count
		}
		return fmt.Sprintf("repeat %dx", count), true
	case domain.BlockDelay:
		ms := domain.DefaultDelayMillis
		if b.Delay != nil {
			ms = b.Delay.Time
		}
		return fmt.Sprintf("wait %d ms", ms), true
	}
	return string(b.Type), false
}

func pinName(snap *domain.Snapshot, pin *int) (string, bool) {
	if pin == nil {
		return "?", false
	}
	cfg, ok := snap.Configs[*pin]
	if !ok {
		return fmt.Sprintf("GPIO%d", *pin), false
	}
	return cfg.Label, true
}

func stepLabel(step domain.ActionStep) string {
	if len(step.Params) == 0 {
		return string(step.Type)
	}
	keys := make([]string, 0, len(step.Params))
	for k := range step.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + step.Params[k]
	}
	return fmt.Sprintf("%s(%s)", step.Type, strings.Join(parts, ", "))
}

// escape keeps labels inside Mermaid double quotes.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
