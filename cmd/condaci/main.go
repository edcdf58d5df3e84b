package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"

	"github.com/stephanebdc/condaci/internal/config"
	"github.com/stephanebdc/condaci/internal/report"
	"github.com/stephanebdc/condaci/internal/runner"
	"github.com/stephanebdc/condaci/internal/store"
	"github.com/stephanebdc/condaci/internal/trigger"
	"github.com/stephanebdc/condaci/internal/webhook"
	"github.com/stephanebdc/condaci/internal/workflow"
	"github.com/stephanebdc/condaci/pkg/logger"
	"github.com/stephanebdc/condaci/pkg/schema"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "condaci",
		Short: "Conda environment provisioning and verification runner",
	}
	root.AddCommand(newInitCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newServeCommand())
	return root
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize condaci workflow and local run store",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := store.Open(store.DefaultDir); err != nil {
				return err
			}
			if !fileExists(workflow.DefaultPath) {
				if err := os.WriteFile(workflow.DefaultPath, []byte(defaultWorkflowYAML), 0o644); err != nil {
					return err
				}
			}
			fmt.Println("initialized condaci workflow and run store")
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	var workflowPath, schemaPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow file against the schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			doc, err := workflow.Document(workflowPath)
			if err != nil {
				return err
			}
			violations, err := schema.Validate(schemaPath, doc)
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				for _, v := range violations {
					fmt.Println(v)
				}
				return cliError{code: 2, err: fmt.Errorf("workflow schema validation failed")}
			}
			if _, err := workflow.Load(workflowPath); err != nil {
				return err
			}
			fmt.Println("workflow valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&workflowPath, "workflow", workflow.DefaultPath, "workflow file")
	cmd.Flags().StringVar(&schemaPath, "schema", "schemas/v1/workflow.schema.json", "workflow JSON schema")
	return cmd
}

func newRunCommand() *cobra.Command {
	var workflowPath, event, branch, repoURL, ref, workDir, storeDir, outJSON, outMD, rootPrefix string
	var selfUpdate bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the trigger and execute the provisioning sequence",
		RunE: func(_ *cobra.Command, _ []string) error {
			wf, err := workflow.Load(workflowPath)
			if err != nil {
				return err
			}
			evType, err := trigger.ParseEventType(event)
			if err != nil {
				return err
			}
			ev := trigger.Event{Type: evType, Branch: trigger.BranchFromRef(branch)}
			if !trigger.Matches(wf.On, ev) {
				fmt.Printf("no run initiated: %s on %s is not a configured trigger\n", ev.Type, ev.Branch)
				return nil
			}

			log, err := logger.New("info")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			r := runner.Run(ctx, runner.Options{
				Workflow:   wf,
				Event:      ev,
				RepoURL:    repoURL,
				Ref:        ref,
				WorkDir:    workDir,
				Root:       rootPrefix,
				SelfUpdate: selfUpdate,
				Log:        log,
			})

			st, err := store.Open(storeDir)
			if err != nil {
				return err
			}
			path, err := st.Save(r)
			if err != nil {
				return err
			}
			fmt.Println(path)

			if outJSON != "" {
				if err := report.WriteJSON(outJSON, r); err != nil {
					return err
				}
				fmt.Println(outJSON)
			}
			if outMD != "" {
				if err := report.WriteMarkdown(outMD, r); err != nil {
					return err
				}
				fmt.Println(outMD)
			}

			if !r.Passed {
				return cliError{code: r.ExitCode, err: fmt.Errorf("run %s failed", r.RunID)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workflowPath, "workflow", workflow.DefaultPath, "workflow file")
	cmd.Flags().StringVar(&event, "event", "push", "trigger event (push|pull_request)")
	cmd.Flags().StringVar(&branch, "branch", "main", "branch the event targets")
	cmd.Flags().StringVar(&repoURL, "repo", "", "repository to clone (empty uses --workdir as-is)")
	cmd.Flags().StringVar(&ref, "ref", "", "revision to check out")
	cmd.Flags().StringVar(&workDir, "workdir", "", "run workspace (empty creates a fresh one)")
	cmd.Flags().StringVar(&storeDir, "store", store.DefaultDir, "run archive directory")
	cmd.Flags().StringVar(&outJSON, "out-json", "", "also write the report as JSON")
	cmd.Flags().StringVar(&outMD, "out-md", "", "also write the report as Markdown")
	cmd.Flags().StringVar(&rootPrefix, "root-prefix", "", "environment manager root prefix override")
	cmd.Flags().BoolVar(&selfUpdate, "self-update", false, "update the environment manager before resolving")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall run timeout")
	return cmd
}

func newReportCommand() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate markdown report from run JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("--in and --out are required")
			}
			raw, err := os.ReadFile(inPath)
			if err != nil {
				return err
			}
			var r runner.Report
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			if err := report.WriteMarkdown(outPath, r); err != nil {
				return err
			}
			fmt.Println(outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "run report json input")
	cmd.Flags().StringVar(&outPath, "out", "", "markdown output")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook trigger server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			wf, err := workflow.Load(cfg.Runner.Workflow)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Runner.StoreDir)
			if err != nil {
				return err
			}

			app := fiber.New()
			app.Use(recover.New())
			app.Use(requestid.New())
			app.Use(webhook.RequestLogger(log))

			h := webhook.NewHandler(log, wf, st, cfg.Runner)
			h.Register(app)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- app.Listen(cfg.ServerAddr()) }()
			log.Infow("webhook listening", "addr", cfg.ServerAddr())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
				log.Errorw("server shutdown", "error", err)
			}
			h.Wait()
			return nil
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const defaultWorkflowYAML = `version: 1
name: smoke-test
on:
  push:
    branches: [main]
  pull_request:
    branches: [main]
environment:
  name: envejp
  runtime: python=3.11
  packages: [tk, reportlab]
  channel: conda-forge
verify:
  imports: [tkinter, reportlab]
  message: "tkinter and reportlab OK"
`
