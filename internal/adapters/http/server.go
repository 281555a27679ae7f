package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/firmware"
	"github.com/robotpit/pinsmith/internal/logging"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/robotpit/pinsmith/pkg/observability"
	"github.com/robotpit/pinsmith/pkg/session"
)

// APIVersion is the version of the embedded OpenAPI document.
const APIVersion = "0.3.0"

//go:embed openapi.yaml
var openapiSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// Server exposes project editing over HTTP.
// Every project request runs under the session Manager's per-project lock.
type Server struct {
	sessions *session.Manager
	catalog  *domain.Catalog
	pins     *domain.PinTable
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts /metrics backed by g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures request error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCatalog sets the catalog served by /catalog. It should match the one
// given to the projects through session.WithProjectOptions.
func WithCatalog(c *domain.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithPins sets the pin table served by /pins and used for firmware.
func WithPins(t *domain.PinTable) Option {
	return func(s *Server) {
		s.pins = t
	}
}

// NewHandler creates a new HTTP handler over the session Manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		sessions: sessions,
		catalog:  domain.DefaultCatalog(),
		pins:     domain.ESP32Pins(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.routes()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/catalog", s.getCatalog)
	r.Get("/pins", s.getPins)
	r.Post("/firmware", s.renderFirmware)

	r.Get("/projects", s.listProjects)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", s.getProject)
		r.Delete("/", s.deleteProject)
		r.Post("/copy", s.copyProject)
		r.Get("/code", s.generateCode)

		r.Get("/pins", s.listConfigs)
		r.Delete("/pins", s.removeAll)
		r.Get("/pins/{pin}", s.selectPin)
		r.Put("/pins/{pin}", s.applyConfig)
		r.Delete("/pins/{pin}", s.removePin)

		r.Get("/pins/{pin}/steps", s.listSteps)
		r.Post("/pins/{pin}/steps", s.addStep)
		r.Delete("/pins/{pin}/steps/{index}", s.deleteStep)
		r.Put("/pins/{pin}/steps/{index}/type", s.setStepType)
		r.Put("/pins/{pin}/steps/{index}/params/{name}", s.setStepParam)
		r.Post("/pins/{pin}/steps/{index}/move", s.moveStep)

		r.Get("/blocks", s.listBlocks)
		r.Post("/blocks", s.addBlock)
		r.Delete("/blocks", s.clearBlocks)
		r.Delete("/blocks/{index}", s.deleteBlock)
		r.Put("/blocks/{index}/params/{name}", s.setBlockParam)
		r.Post("/blocks/{index}/move", s.moveBlock)
	})
	return r
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>pinsmith API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// -- Handlers --

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "pinsmith-http",
		"version":     pinsmith.Version,
		"api_version": APIVersion,
		"board":       s.pins.Board,
	})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.Kinds())
}

func (s *Server) getPins(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.pins.All())
}

type firmwareRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	Port     int    `json:"port"`
}

func (s *Server) renderFirmware(w http.ResponseWriter, r *http.Request) {
	var body firmwareRequest
	if !s.decode(w, r, &body) {
		return
	}
	src, err := firmware.Render(firmware.Options{
		SSID:     body.SSID,
		Password: body.Password,
		Port:     body.Port,
		Pins:     s.pins,
	})
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeText(w, "pinsmith_firmware.ino", src)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) copyProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To string `json:"to"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.To == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("target project id is required"))
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.SaveAs(ctx, body.To); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) generateCode(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		s.writeText(w, p.ID()+".ino", p.Generate(ctx))
		return nil
	})
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		s.writeJSON(w, http.StatusOK, p.Configs())
		return nil
	})
}

func (s *Server) removeAll(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		p.RemoveAll(ctx)
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) selectPin(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		capability, cfg, err := p.SelectPin(pin)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"capability": capability, "config": cfg})
		return nil
	})
}

type configRequest struct {
	Device domain.DeviceKind `json:"device"`
	Label  string            `json:"label"`
	Params map[string]string `json:"params"`
}

func (s *Server) applyConfig(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	var body configRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		cfg, err := p.ApplyConfig(ctx, pin, body.Device, body.Label, body.Params)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusOK, cfg)
		return nil
	})
}

func (s *Server) removePin(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.RemovePin(ctx, pin); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) listSteps(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		steps := p.Steps(pin)
		if steps == nil {
			steps = []domain.ActionStep{}
		}
		s.writeJSON(w, http.StatusOK, steps)
		return nil
	})
}

func (s *Server) addStep(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		idx, err := p.AddStep(ctx, pin)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusCreated, map[string]int{"index": idx})
		return nil
	})
}

func (s *Server) deleteStep(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.DeleteStep(ctx, pin, idx); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) setStepType(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	var body struct {
		Action domain.ActionID `json:"action"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.SetStepType(ctx, pin, idx, body.Action); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) setStepParam(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	name := chi.URLParam(r, "name")
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.SetStepParamByName(ctx, pin, idx, name, body.Value); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

type moveRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) moveStep(w http.ResponseWriter, r *http.Request) {
	pin, ok := s.intParam(w, r, "pin")
	if !ok {
		return
	}
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	var body moveRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		moved, err := p.MoveStep(ctx, pin, idx, body.Delta)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"changed": moved})
		return nil
	})
}

func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		s.writeJSON(w, http.StatusOK, p.Blocks())
		return nil
	})
}

func (s *Server) addBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type domain.BlockType `json:"type"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		b, err := p.AddBlock(ctx, body.Type)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusCreated, b)
		return nil
	})
}

func (s *Server) clearBlocks(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		s.writeJSON(w, http.StatusOK, map[string]bool{"changed": p.ClearBlocks(ctx)})
		return nil
	})
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.DeleteBlock(ctx, idx); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) setBlockParam(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	var body struct {
		Value any `json:"value"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	name := chi.URLParam(r, "name")
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		if err := p.SetBlockParam(ctx, idx, name, body.Value); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) moveBlock(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.intParam(w, r, "index")
	if !ok {
		return
	}
	var body moveRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, p *pinsmith.Project) error {
		s.writeJSON(w, http.StatusOK, map[string]bool{"changed": p.MoveBlock(ctx, idx, body.Delta)})
		return nil
	})
}

// -- Helpers --

// edit runs fn on the project named in the path. fn writes the success
// response itself; a returned error is mapped to a status code.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, fn func(context.Context, *pinsmith.Project) error) {
	if err := s.sessions.Edit(r.Context(), chi.URLParam(r, "id"), fn); err != nil {
		s.fail(w, err)
	}
}

func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%s must be an integer", name))
		return 0, false
	}
	return v, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// StatusCode maps a domain error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrPinNotConfigured),
		errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIncompatiblePin),
		errors.Is(err, domain.ErrNoActionsForKind):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPin),
		errors.Is(err, domain.ErrMissingDeviceKind),
		errors.Is(err, domain.ErrUnknownDeviceKind),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrUnknownBlockType),
		errors.Is(err, domain.ErrInvalidParam),
		errors.Is(err, domain.ErrInvalidBlockParam):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeError(w, code, err)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{
		"error":  err.Error(),
		"reason": observability.Reason(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "err", err)
	}
}

func (s *Server) writeText(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(body))
}
