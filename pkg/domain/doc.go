/*
Package domain contains the core model of the pinsmith constructor.

It describes the board (which pins exist and what they can do), the device catalog
(which peripherals can be attached and which actions they support), and the three
mutable structures a user edits: pin configurations, per-pin action sequences and the
flat block program. The package is pure data plus validation helpers; it performs no
I/O and knows nothing about persistence or code generation.

# Key Entities

  - PinTable / PinCapability: static description of the board's GPIO lines.
  - Catalog / DeviceKindDef: static registry of device kinds, their electrical
    requirements and their actions (ActionDef) with typed parameters (ParamDef).
  - PinConfig: the device assigned to one pin.
  - ActionStep: one entry of a pin's action sequence, parameters keyed by name.
  - Block: one unit of the block program (condition, action, loop, delay).
  - Snapshot: the full serializable state of a project.
*/
package domain
