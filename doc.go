/*
Package pinsmith is a constructor for ESP32 hardware projects: it lets a host
describe which peripherals sit on which GPIO lines, attach ordered action
sequences to those peripherals, arrange a flat block program, and turn the
result into an Arduino-framework sketch.

# Concept

A Project owns one model (a domain.Snapshot) and edits it through validated
operations. Rejected operations leave the model untouched and return an error
wrapping one of the domain sentinels, so callers can branch with errors.Is.
Every accepted operation saves a copy of the model through a
ports.SnapshotStore. Saving is fire-and-forget: storage problems are logged
and reported through lifecycle hooks, never surfaced to the editing call.

The code generator is a pure function of the model. Calling Generate twice on
the same model yields the same sketch, apart from the timestamp line.

# Key Features

  - Board-aware validation: reserved, input-only, PWM and ADC constraints are
    checked against the pin table before a device is attached.
  - Hexagonal Architecture: the model is decoupled from storage (memory, file,
    Redis) and from the hosts (CLI, HTTP, MCP).
  - Observability: LifecycleHooks expose mutations, rejections, saves and
    generation runs without coupling the core to a metrics library.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/robotpit/pinsmith"
		"github.com/robotpit/pinsmith/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		p, err := pinsmith.Open(ctx, "garage-door")
		if err != nil {
			log.Fatal(err)
		}

		if _, err := p.ApplyConfig(ctx, 5, domain.KindLED, "Status", nil); err != nil {
			log.Fatal(err)
		}
		idx, _ := p.AddStep(ctx, 5)
		_ = p.SetStepType(ctx, 5, idx, domain.ActionBlink)
		_ = p.SetStepParamByName(ctx, 5, idx, "interval", "250")

		fmt.Print(p.Generate(ctx))
	}
*/
package pinsmith
