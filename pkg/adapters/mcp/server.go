package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/observability"
	"github.com/robotpit/pinsmith/pkg/session"
)

// Server exposes project editing as MCP tools.
type Server struct {
	sessions  *session.Manager
	catalog   *domain.Catalog
	pins      *domain.PinTable
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCatalog sets the catalog exposed by list_catalog.
func WithCatalog(c *domain.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithPins sets the pin table exposed by list_pins.
func WithPins(t *domain.PinTable) Option {
	return func(s *Server) {
		s.pins = t
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		catalog:   domain.DefaultCatalog(),
		pins:      domain.ESP32Pins(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("pinsmith-mcp", pinsmith.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Tool arguments. Every project tool names its project explicitly.

type projectArgs struct {
	Project string `json:"project"`
}

type copyArgs struct {
	Project string `json:"project"`
	To      string `json:"to"`
}

type pinArgs struct {
	Project string `json:"project"`
	Pin     int    `json:"pin"`
}

type configArgs struct {
	Project string            `json:"project"`
	Pin     int               `json:"pin"`
	Device  string            `json:"device"`
	Label   string            `json:"label"`
	Params  map[string]string `json:"params"`
}

type stepArgs struct {
	Project    string `json:"project"`
	Pin        int    `json:"pin"`
	Index      int    `json:"index"`
	Action     string `json:"action"`
	Name       string `json:"name"`
	ParamIndex *int   `json:"param_index"`
	Value      string `json:"value"`
	Delta      int    `json:"delta"`
}

type blockArgs struct {
	Project string `json:"project"`
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	Delta   int    `json:"delta"`
}

func projectParam() mcp.ToolOption {
	return mcp.WithString("project", mcp.Required(), mcp.Description("Project ID"))
}

func pinParam() mcp.ToolOption {
	return mcp.WithNumber("pin", mcp.Required(), mcp.Description("GPIO number"))
}

func indexParam(what string) mcp.ToolOption {
	return mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based "+what+" index"))
}

func deltaParam() mcp.ToolOption {
	return mcp.WithNumber("delta", mcp.Required(), mcp.Description("-1 to move up, 1 to move down"))
}

func (s *Server) registerTools() {
	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.mcpServer.AddTool(tool, handler)
	}

	// Board and catalog
	add(mcp.NewTool("list_catalog",
		mcp.WithDescription("List device kinds with their pin requirements, actions and parameters."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.catalog.Kinds())
	})
	add(mcp.NewTool("list_pins",
		mcp.WithDescription("List the board's GPIO pins and their capabilities."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.pins.All())
	})

	// Projects
	add(mcp.NewTool("list_projects",
		mcp.WithDescription("List stored project IDs."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return toolError(err), nil
		}
		if ids == nil {
			ids = []string{}
		}
		return jsonResult(ids)
	})
	add(mcp.NewTool("get_project",
		mcp.WithDescription("Return the full project model: pin configurations, action sequences and blocks."),
		projectParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args projectArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return p.Snapshot(), nil
		})
	}))
	add(mcp.NewTool("copy_project",
		mcp.WithDescription("Save a copy of the project under another ID."),
		projectParam(),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target project ID")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args copyArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return map[string]string{"copied_to": args.To}, p.SaveAs(ctx, args.To)
		})
	}))
	add(mcp.NewTool("generate_code",
		mcp.WithDescription("Generate the Arduino sketch for the project."),
		projectParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args projectArgs) (*mcp.CallToolResult, error) {
		var code string
		err := s.sessions.Edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) error {
			code = p.Generate(ctx)
			return nil
		})
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(code), nil
	}))

	// Pin configuration
	add(mcp.NewTool("select_pin",
		mcp.WithDescription("Return a pin's capabilities and current configuration. Fails for reserved pins."),
		projectParam(), pinParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args pinArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			capability, cfg, err := p.SelectPin(args.Pin)
			return map[string]any{"capability": capability, "config": cfg}, err
		})
	}))
	add(mcp.NewTool("apply_config",
		mcp.WithDescription("Attach a device to a pin, replacing any previous one. The sequence is kept only if the device kind is unchanged."),
		projectParam(), pinParam(),
		mcp.WithString("device", mcp.Required(), mcp.Description("Device kind, see list_catalog")),
		mcp.WithString("label", mcp.Description("Display name; defaults to GPIO<n>")),
		mcp.WithObject("params", mcp.Description("Static device parameters such as min_angle/max_angle for servos")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args configArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return p.ApplyConfig(ctx, args.Pin, domain.DeviceKind(args.Device), args.Label, args.Params)
		})
	}))
	add(mcp.NewTool("remove_pin",
		mcp.WithDescription("Remove a pin's configuration and its action sequence."),
		projectParam(), pinParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args pinArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			if err := p.RemovePin(ctx, args.Pin); err != nil {
				return nil, err
			}
			return p.Configs(), nil
		})
	}))
	add(mcp.NewTool("remove_all",
		mcp.WithDescription("Destructive reset: remove every pin configuration, action sequence and block."),
		projectParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args projectArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			p.RemoveAll(ctx)
			return p.Snapshot(), nil
		})
	}))

	// Action sequences
	add(mcp.NewTool("add_step",
		mcp.WithDescription("Append a step to a pin's action sequence, using the device's first action."),
		projectParam(), pinParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args pinArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			idx, err := p.AddStep(ctx, args.Pin)
			return map[string]int{"index": idx}, err
		})
	}))
	add(mcp.NewTool("set_step_type",
		mcp.WithDescription("Change a step's action. Its parameters are cleared."),
		projectParam(), pinParam(), indexParam("step"),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action ID valid for the pin's device")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args stepArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			err := p.SetStepType(ctx, args.Pin, args.Index, domain.ActionID(args.Action))
			return p.Steps(args.Pin), err
		})
	}))
	add(mcp.NewTool("set_step_param",
		mcp.WithDescription("Set a step parameter, by name or by position in the action definition."),
		projectParam(), pinParam(), indexParam("step"),
		mcp.WithString("name", mcp.Description("Parameter name")),
		mcp.WithNumber("param_index", mcp.Description("Parameter position, used when name is empty")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Parameter value")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args stepArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			var err error
			switch {
			case args.Name != "":
				err = p.SetStepParamByName(ctx, args.Pin, args.Index, args.Name, args.Value)
			case args.ParamIndex != nil:
				err = p.SetStepParam(ctx, args.Pin, args.Index, *args.ParamIndex, args.Value)
			default:
				err = fmt.Errorf("name or param_index is required: %w", domain.ErrInvalidParam)
			}
			return p.Steps(args.Pin), err
		})
	}))
	add(mcp.NewTool("move_step",
		mcp.WithDescription("Swap a step with its neighbour. Moving past either end does nothing."),
		projectParam(), pinParam(), indexParam("step"), deltaParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args stepArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			moved, err := p.MoveStep(ctx, args.Pin, args.Index, args.Delta)
			return map[string]bool{"changed": moved}, err
		})
	}))
	add(mcp.NewTool("delete_step",
		mcp.WithDescription("Delete a step from a pin's action sequence."),
		projectParam(), pinParam(), indexParam("step"),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args stepArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			err := p.DeleteStep(ctx, args.Pin, args.Index)
			return p.Steps(args.Pin), err
		})
	}))

	// Block program
	add(mcp.NewTool("add_block",
		mcp.WithDescription("Append a block with default parameters."),
		projectParam(),
		mcp.WithString("type", mcp.Required(), mcp.Enum("condition", "action", "loop", "delay")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args blockArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return p.AddBlock(ctx, domain.BlockType(args.Type))
		})
	}))
	add(mcp.NewTool("set_block_param",
		mcp.WithDescription("Set one block parameter: pin/operator/value for conditions, pin/action for actions, count for loops, time for delays. An empty pin clears the reference."),
		projectParam(), indexParam("block"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Parameter name")),
		mcp.WithString("value", mcp.Description("Parameter value")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args blockArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			err := p.SetBlockParam(ctx, args.Index, args.Name, args.Value)
			return p.Blocks(), err
		})
	}))
	add(mcp.NewTool("move_block",
		mcp.WithDescription("Swap a block with its neighbour. Moving past either end does nothing."),
		projectParam(), indexParam("block"), deltaParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args blockArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return map[string]bool{"changed": p.MoveBlock(ctx, args.Index, args.Delta)}, nil
		})
	}))
	add(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block."),
		projectParam(), indexParam("block"),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args blockArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			err := p.DeleteBlock(ctx, args.Index)
			return p.Blocks(), err
		})
	}))
	add(mcp.NewTool("clear_blocks",
		mcp.WithDescription("Remove every block."),
		projectParam(),
	), mcp.NewTypedToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args projectArgs) (*mcp.CallToolResult, error) {
		return s.edit(ctx, args.Project, func(ctx context.Context, p *pinsmith.Project) (any, error) {
			return map[string]bool{"changed": p.ClearBlocks(ctx)}, nil
		})
	}))
}

// edit runs fn under the project lock and renders its result as JSON.
// Rejections become tool errors so the agent can correct its call.
func (s *Server) edit(ctx context.Context, projectID string, fn func(context.Context, *pinsmith.Project) (any, error)) (*mcp.CallToolResult, error) {
	if projectID == "" {
		return mcp.NewToolResultError("project is required"), nil
	}
	var out any
	err := s.sessions.Edit(ctx, projectID, func(ctx context.Context, p *pinsmith.Project) error {
		var err error
		out, err = fn(ctx, p)
		return err
	})
	if err != nil {
		s.logger.Debug("tool rejected", "project", projectID, "err", err)
		return toolError(err), nil
	}
	return jsonResult(out)
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", observability.Reason(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("pinsmith://catalog", "Device catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource("pinsmith://catalog", s.catalog.Kinds())
	})
	s.mcpServer.AddResource(mcp.NewResource("pinsmith://pins", "Board pin table",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource("pinsmith://pins", s.pins.All())
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(raw),
		},
	}, nil
}
