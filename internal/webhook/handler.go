// Package webhook receives repository events over HTTP and starts runs for
// the ones the workflow's triggers recognize. Each matching delivery starts a
// new, fully isolated run; deliveries never share state or block each other.
package webhook

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/stephanebdc/condaci/internal/config"
	"github.com/stephanebdc/condaci/internal/runner"
	"github.com/stephanebdc/condaci/internal/store"
	"github.com/stephanebdc/condaci/internal/trigger"
	"github.com/stephanebdc/condaci/internal/workflow"
)

const eventHeader = "X-GitHub-Event"

// runFunc is swapped in tests.
type runFunc func(ctx context.Context, opts runner.Options) runner.Report

// Handler routes deliveries to the runner and serves stored run reports.
type Handler struct {
	log   *zap.SugaredLogger
	wf    workflow.Workflow
	store *store.Local
	cfg   config.RunnerConfig
	run   runFunc
	wg    sync.WaitGroup
}

// NewHandler constructs the webhook handler.
func NewHandler(log *zap.SugaredLogger, wf workflow.Workflow, st *store.Local, cfg config.RunnerConfig) *Handler {
	return &Handler{log: log, wf: wf, store: st, cfg: cfg, run: runner.Run}
}

// Register mounts the handler's routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/events", h.handleEvent)
	app.Get("/runs", h.handleListRuns)
	app.Get("/runs/:id", h.handleGetRun)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
}

// Wait blocks until all in-flight runs finish. Called on shutdown.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) handleEvent(c *fiber.Ctx) error {
	eventName := c.Get(eventHeader)
	if eventName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing "+eventHeader+" header")
	}
	ev, meta, err := extractEvent(eventName, c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !trigger.Matches(h.wf.On, ev) {
		h.log.Infow("event ignored", "event", ev.Type, "branch", ev.Branch)
		return c.JSON(fiber.Map{"status": "ignored", "event": string(ev.Type), "branch": ev.Branch})
	}

	opts := runner.Options{
		Workflow:   h.wf,
		Event:      ev,
		RepoURL:    meta.RepoURL,
		Ref:        meta.Ref,
		Root:       h.cfg.RootPrefix,
		SelfUpdate: h.cfg.SelfUpdate,
		Log:        h.log,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.RunTimeout)
		defer cancel()
		report := h.run(ctx, opts)
		if _, err := h.store.Save(report); err != nil {
			h.log.Errorw("store run report", "run_id", report.RunID, "error", err)
			return
		}
		h.log.Infow("run finished",
			"run_id", report.RunID,
			"event", report.Event,
			"branch", report.Branch,
			"passed", report.Passed,
			"exit_code", report.ExitCode,
		)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "started",
		"event":  string(ev.Type),
		"branch": ev.Branch,
	})
}

func (h *Handler) handleGetRun(c *fiber.Ctx) error {
	report, err := h.store.Load(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(report)
}

func (h *Handler) handleListRuns(c *fiber.Ctx) error {
	ids, err := h.store.List()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"runs": ids})
}
