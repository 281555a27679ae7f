// Package tui renders catalog, board and project views for the terminal.
// Views are built as markdown and styled by a glamour Renderer.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// CatalogMarkdown lists every device kind with its actions and parameters.
func CatalogMarkdown(catalog *domain.Catalog) string {
	var sb strings.Builder
	sb.WriteString("# Device catalog\n\n")
	sb.WriteString("| Kind | Label | Direction | Needs | Actions |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, def := range catalog.Kinds() {
		actions := make([]string, len(def.Actions))
		for i, a := range def.Actions {
			actions[i] = string(a.ID)
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n",
			def.Kind, cell(def.Label), def.Direction, needs(def), dash(strings.Join(actions, ", ")))
	}

	for _, def := range catalog.Kinds() {
		if len(def.Actions) == 0 && len(def.Extra) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", def.Label)
		for _, a := range def.Actions {
			fmt.Fprintf(&sb, "- **%s** (`%s`)%s\n", a.Label, a.ID, params(a.Params))
		}
		if len(def.Extra) > 0 {
			fmt.Fprintf(&sb, "- _pin settings_%s\n", params(def.Extra))
		}
	}
	return sb.String()
}

// PinsMarkdown renders the board's pin table. When snap is non-nil,
// a column shows which device each pin carries.
func PinsMarkdown(pins *domain.PinTable, snap *domain.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s pins\n\n", strings.ToUpper(pins.Board))
	sb.WriteString("| Pin | Digital | ADC | PWM | Notes | Device |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range pins.All() {
		var notes []string
		if p.InputOnly {
			notes = append(notes, "input only")
		}
		if p.Reserved {
			notes = append(notes, "reserved")
		}
		device := "-"
		if snap != nil {
			if cfg, ok := snap.Configs[p.ID]; ok {
				device = fmt.Sprintf("%s (`%s`)", cell(cfg.Label), cfg.Kind)
			}
		}
		fmt.Fprintf(&sb, "| GPIO%d | %s | %s | %s | %s | %s |\n",
			p.ID, check(p.Digital), check(p.AnalogInput), check(p.PWM), dash(strings.Join(notes, ", ")), device)
	}
	return sb.String()
}

// ProjectMarkdown summarises a project: its devices, sequences and block program.
func ProjectMarkdown(id string, snap *domain.Snapshot, catalog *domain.Catalog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Project %s\n\n", id)
	if snap.Empty() {
		sb.WriteString("_Nothing configured yet._\n")
		return sb.String()
	}

	sb.WriteString("## Devices\n\n")
	if len(snap.Configs) == 0 {
		sb.WriteString("_No pins configured._\n")
	} else {
		sb.WriteString("| Pin | Label | Device | Settings |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, pin := range snap.Pins() {
			cfg := snap.Configs[pin]
			kind := string(cfg.Kind)
			if def, ok := catalog.Lookup(cfg.Kind); ok {
				kind = def.Label
			}
			fmt.Fprintf(&sb, "| GPIO%d | %s | %s | %s |\n", pin, cell(cfg.Label), kind, dash(pairs(cfg.Params)))
		}
	}

	var sequenced []int
	for _, pin := range snap.Pins() {
		if len(snap.Actions[pin]) > 0 {
			sequenced = append(sequenced, pin)
		}
	}
	if len(sequenced) > 0 {
		sb.WriteString("\n## Sequences\n")
		for _, pin := range sequenced {
			fmt.Fprintf(&sb, "\n### %s (GPIO%d)\n\n", snap.Configs[pin].Label, pin)
			for i, step := range snap.Actions[pin] {
				fmt.Fprintf(&sb, "%d. `%s`", i+1, step.Type)
				if p := pairs(step.Params); p != "" {
					fmt.Fprintf(&sb, " %s", p)
				}
				sb.WriteString("\n")
			}
		}
	}

	if len(snap.Blocks) > 0 {
		sb.WriteString("\n## Blocks\n\n")
		for i, b := range snap.Blocks {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, describeBlock(snap, b))
		}
	}
	return sb.String()
}

func describeBlock(snap *domain.Snapshot, b domain.Block) string {
	switch b.Type {
	case domain.BlockCondition:
		if b.Condition != nil {
			return fmt.Sprintf("**if** %s %s %s", pinRef(snap, b.Condition.Pin), b.Condition.Operator, b.Condition.Value)
		}
	case domain.BlockAction:
		if b.Action != nil {
			action := string(b.Action.Action)
			if action == "" {
				action = "?"
			}
			return fmt.Sprintf("**do** %s `%s`", pinRef(snap, b.Action.Pin), action)
		}
	case domain.BlockLoop:
		if b.Loop != nil {
			return fmt.Sprintf("**repeat** %d times", b.Loop.Count)
		}
	case domain.BlockDelay:
		if b.Delay != nil {
			return fmt.Sprintf("**wait** %d ms", b.Delay.Time)
		}
	}
	return fmt.Sprintf("**%s**", b.Type)
}

func pinRef(snap *domain.Snapshot, pin *int) string {
	if pin == nil {
		return "_(no pin)_"
	}
	if cfg, ok := snap.Configs[*pin]; ok {
		return cfg.Label
	}
	return fmt.Sprintf("GPIO%d _(not configured)_", *pin)
}

func params(defs []domain.ParamDef) string {
	if len(defs) == 0 {
		return ""
	}
	parts := make([]string, len(defs))
	for i, p := range defs {
		switch p.Kind {
		case domain.ParamChoice:
			parts[i] = fmt.Sprintf("`%s` one of %s", p.Name, strings.Join(p.Options, "/"))
		default:
			parts[i] = fmt.Sprintf("`%s` %d..%d", p.Name, p.Min, p.Max)
		}
	}
	return ": " + strings.Join(parts, ", ")
}

func pairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}

func needs(def domain.DeviceKindDef) string {
	switch {
	case def.RequiresPWM:
		return "PWM"
	case def.RequiresAnalog:
		return "ADC"
	}
	return "-"
}

func check(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cell keeps user text from breaking the table.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
