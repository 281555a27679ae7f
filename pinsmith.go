package pinsmith

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robotpit/pinsmith/internal/codegen"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/internal/runtime"
	"github.com/robotpit/pinsmith/pkg/adapters/memory"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/ports"
)

// Project is one editing session over a board configuration.
//
// Every successful mutation is followed by a save to the SnapshotStore. Saves
// are fire-and-forget: a failing store is logged and reported through the
// OnSnapshot hook, while the in-memory model keeps working.
//
// A Project is not safe for concurrent use. Servers serialize access per
// project ID with session.Manager.
type Project struct {
	id      string
	editor  *runtime.Editor
	gen     *codegen.Generator
	store   ports.SnapshotStore
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
	catalog *domain.Catalog
	pins    *domain.PinTable
	strict  bool
	newID   func() string
}

// Option defines a functional option for configuring a Project.
type Option func(*Project)

// WithStore sets where snapshots are saved. The default keeps them in memory.
func WithStore(s ports.SnapshotStore) Option {
	return func(p *Project) {
		p.store = s
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Project) {
		p.hooks = p.hooks.Merge(hooks)
	}
}

// WithCatalog replaces the built-in device catalog.
func WithCatalog(c *domain.Catalog) Option {
	return func(p *Project) {
		p.catalog = c
	}
}

// WithPins replaces the built-in ESP32 pin table.
func WithPins(t *domain.PinTable) Option {
	return func(p *Project) {
		p.pins = t
	}
}

// WithStrictParams rejects step parameter values outside their declared bounds.
func WithStrictParams(strict bool) Option {
	return func(p *Project) {
		p.strict = strict
	}
}

// WithClock sets the clock used for event timestamps and the generated header.
func WithClock(now func() time.Time) Option {
	return func(p *Project) {
		p.now = now
	}
}

// WithBlockIDs overrides how block IDs are minted.
func WithBlockIDs(fn func() string) Option {
	return func(p *Project) {
		p.newID = fn
	}
}

// New creates an empty Project without touching the store.
func New(id string, opts ...Option) (*Project, error) {
	if id == "" {
		return nil, fmt.Errorf("project id is required")
	}
	p := &Project{id: id}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = memory.NewStore()
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.catalog == nil {
		p.catalog = domain.DefaultCatalog()
	}
	if p.pins == nil {
		p.pins = domain.ESP32Pins()
	}
	p.logger = p.logger.With("project", id)

	p.editor = runtime.NewEditor(nil,
		runtime.WithCatalog(p.catalog),
		runtime.WithPins(p.pins),
		runtime.WithStrictParams(p.strict),
		runtime.WithIDGenerator(p.newID),
	)
	p.gen = codegen.New(
		codegen.WithCatalog(p.catalog),
		codegen.WithPins(p.pins),
		codegen.WithClock(p.now),
	)
	return p, nil
}

// Open creates a Project and loads its last snapshot.
// A missing snapshot starts an empty project; a failing store is logged and
// also starts empty, so editing never depends on storage being reachable.
func Open(ctx context.Context, id string, opts ...Option) (*Project, error) {
	p, err := New(id, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Reload(ctx); err != nil {
		p.logger.Warn("starting with an empty project", "err", err)
	}
	return p, nil
}

// Reload replaces the model with the stored snapshot.
// A missing snapshot resets the model to empty and is not an error.
func (p *Project) Reload(ctx context.Context) error {
	snap, err := p.store.Load(ctx, p.id)
	if errors.Is(err, domain.ErrProjectNotFound) {
		p.editor.Reset(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load project %s: %w", p.id, err)
	}
	if dropped := p.editor.Reset(snap); len(dropped) > 0 {
		p.logger.Warn("stored configurations dropped", "pins", dropped)
	}
	return nil
}

// Import replaces the model with snap and stores it right away.
// Configurations the board or catalog cannot honour are left out; their pins
// are returned. Unlike the automatic saves, a failing store is returned.
func (p *Project) Import(ctx context.Context, snap *domain.Snapshot) ([]int, error) {
	if snap == nil {
		return nil, fmt.Errorf("nothing to import")
	}
	dropped := p.editor.Reset(snap)
	if len(dropped) > 0 {
		p.logger.Warn("imported configurations dropped", "pins", dropped)
	}
	if err := p.store.Save(ctx, p.id, p.editor.Snapshot()); err != nil {
		return dropped, fmt.Errorf("failed to import project %s: %w", p.id, err)
	}
	p.logger.Info("project imported", "pins", len(p.editor.Configs()), "blocks", len(p.editor.Blocks()))
	return dropped, nil
}

// ID returns the project identifier.
func (p *Project) ID() string { return p.id }

// Catalog returns the device catalog in use.
func (p *Project) Catalog() *domain.Catalog { return p.catalog }

// Pins returns the board pin table in use.
func (p *Project) Pins() *domain.PinTable { return p.pins }

// Snapshot returns a deep copy of the model.
func (p *Project) Snapshot() *domain.Snapshot { return p.editor.Snapshot() }

// Configs returns the pin configurations in ascending pin order.
func (p *Project) Configs() []domain.PinConfig { return p.editor.Configs() }

// Steps returns the action sequence of pin.
func (p *Project) Steps(pin int) []domain.ActionStep { return p.editor.Steps(pin) }

// Blocks returns the block program.
func (p *Project) Blocks() []domain.Block { return p.editor.Blocks() }

// SelectPin returns the capability of pin and its configuration, if any.
func (p *Project) SelectPin(pin int) (domain.PinCapability, *domain.PinConfig, error) {
	return p.editor.SelectPin(pin)
}

// ApplyConfig attaches a device to pin and returns the stored configuration.
func (p *Project) ApplyConfig(ctx context.Context, pin int, kind domain.DeviceKind, label string, extra map[string]string) (domain.PinConfig, error) {
	cfg, err := p.editor.ApplyConfig(pin, kind, label, extra)
	if err != nil {
		return cfg, p.rejected(ctx, "apply_config", err)
	}
	p.logger.Info("pin configured", "pin", pin, "device", kind, "label", cfg.Label)
	p.commit(ctx, "apply_config", &pin)
	return cfg, nil
}

// RemovePin deletes the configuration and sequence of pin.
func (p *Project) RemovePin(ctx context.Context, pin int) error {
	if err := p.editor.RemovePin(pin); err != nil {
		return p.rejected(ctx, "remove_pin", err)
	}
	p.commit(ctx, "remove_pin", &pin)
	return nil
}

// RemoveAll clears every configuration, sequence and block.
func (p *Project) RemoveAll(ctx context.Context) {
	p.editor.RemoveAll()
	p.commit(ctx, "remove_all", nil)
}

// AddStep appends a default step to the sequence of pin and returns its index.
func (p *Project) AddStep(ctx context.Context, pin int) (int, error) {
	idx, err := p.editor.AddStep(pin)
	if err != nil {
		return 0, p.rejected(ctx, "add_step", err)
	}
	p.commit(ctx, "add_step", &pin)
	return idx, nil
}

// SetStepType changes the action of a step and clears its parameters.
func (p *Project) SetStepType(ctx context.Context, pin, index int, action domain.ActionID) error {
	if err := p.editor.SetStepType(pin, index, action); err != nil {
		return p.rejected(ctx, "set_step_type", err)
	}
	p.commit(ctx, "set_step_type", &pin)
	return nil
}

// SetStepParam sets a step parameter by its position in the action definition.
func (p *Project) SetStepParam(ctx context.Context, pin, index, paramIndex int, value string) error {
	if err := p.editor.SetStepParam(pin, index, paramIndex, value); err != nil {
		return p.rejected(ctx, "set_step_param", err)
	}
	p.commit(ctx, "set_step_param", &pin)
	return nil
}

// SetStepParamByName sets a step parameter by name.
func (p *Project) SetStepParamByName(ctx context.Context, pin, index int, name, value string) error {
	if err := p.editor.SetStepParamByName(pin, index, name, value); err != nil {
		return p.rejected(ctx, "set_step_param", err)
	}
	p.commit(ctx, "set_step_param", &pin)
	return nil
}

// MoveStep swaps a step with its neighbour. Out-of-range moves do nothing.
func (p *Project) MoveStep(ctx context.Context, pin, index, delta int) (bool, error) {
	moved, err := p.editor.MoveStep(pin, index, delta)
	if err != nil {
		return false, p.rejected(ctx, "move_step", err)
	}
	if moved {
		p.commit(ctx, "move_step", &pin)
	}
	return moved, nil
}

// DeleteStep removes a step from the sequence of pin.
func (p *Project) DeleteStep(ctx context.Context, pin, index int) error {
	if err := p.editor.DeleteStep(pin, index); err != nil {
		return p.rejected(ctx, "delete_step", err)
	}
	p.commit(ctx, "delete_step", &pin)
	return nil
}

// AddBlock appends a block of type t with default parameters.
func (p *Project) AddBlock(ctx context.Context, t domain.BlockType) (domain.Block, error) {
	b, err := p.editor.AddBlock(t)
	if err != nil {
		return b, p.rejected(ctx, "add_block", err)
	}
	p.commit(ctx, "add_block", nil)
	return b, nil
}

// SetBlockParam sets one named parameter of a block.
func (p *Project) SetBlockParam(ctx context.Context, index int, name string, value any) error {
	if err := p.editor.SetBlockParam(index, name, value); err != nil {
		return p.rejected(ctx, "set_block_param", err)
	}
	p.commit(ctx, "set_block_param", nil)
	return nil
}

// MoveBlock swaps a block with its neighbour. Out-of-range moves do nothing.
func (p *Project) MoveBlock(ctx context.Context, index, delta int) bool {
	if !p.editor.MoveBlock(index, delta) {
		return false
	}
	p.commit(ctx, "move_block", nil)
	return true
}

// DeleteBlock removes a block.
func (p *Project) DeleteBlock(ctx context.Context, index int) error {
	if err := p.editor.DeleteBlock(index); err != nil {
		return p.rejected(ctx, "delete_block", err)
	}
	p.commit(ctx, "delete_block", nil)
	return nil
}

// ClearBlocks empties the block program. Clearing an empty program does nothing.
func (p *Project) ClearBlocks(ctx context.Context) bool {
	if !p.editor.ClearBlocks() {
		return false
	}
	p.commit(ctx, "clear_blocks", nil)
	return true
}

// Generate renders the model as an Arduino sketch. It does not change the model.
func (p *Project) Generate(ctx context.Context) string {
	snap := p.editor.Snapshot()
	code := p.gen.Generate(snap)
	if p.hooks.OnGenerate != nil {
		p.hooks.OnGenerate(ctx, &domain.GenerateEvent{
			EventBase: p.event(domain.EventGenerate),
			Bytes:     len(code),
			Pins:      len(snap.Configs),
		})
	}
	return code
}

// SaveAs stores a copy of the model under another project ID.
// Unlike the automatic saves, failures are returned.
func (p *Project) SaveAs(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("project id is required")
	}
	if err := p.store.Save(ctx, id, p.editor.Snapshot()); err != nil {
		return fmt.Errorf("failed to save project as %s: %w", id, err)
	}
	p.logger.Info("project copied", "to", id)
	return nil
}

func (p *Project) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: p.now(), Type: t, ProjectID: p.id}
}

// commit reports a mutation and writes the snapshot.
func (p *Project) commit(ctx context.Context, op string, pin *int) {
	if p.hooks.OnMutation != nil {
		p.hooks.OnMutation(ctx, &domain.MutationEvent{
			EventBase: p.event(domain.EventMutation),
			Op:        op,
			Pin:       pin,
		})
	}

	start := time.Now()
	err := p.store.Save(ctx, p.id, p.editor.Snapshot())
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Warn("snapshot not saved", "op", op, "err", err)
	} else {
		p.logger.Debug("snapshot saved", "op", op, "duration", elapsed)
	}

	if p.hooks.OnSnapshot != nil {
		t := domain.EventSnapshotSaved
		if err != nil {
			t = domain.EventSnapshotError
		}
		p.hooks.OnSnapshot(ctx, &domain.SnapshotEvent{
			EventBase: p.event(t),
			Duration:  elapsed,
			Err:       err,
		})
	}
}

func (p *Project) rejected(ctx context.Context, op string, err error) error {
	p.logger.Debug("operation rejected", "op", op, "err", err)
	if p.hooks.OnRejected != nil {
		p.hooks.OnRejected(ctx, &domain.RejectedEvent{
			EventBase: p.event(domain.EventRejected),
			Op:        op,
			Err:       err,
		})
	}
	return err
}
