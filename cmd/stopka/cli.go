package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/stopka/internal/asana"
	"github.com/hpungsan/stopka/internal/config"
	"github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/ops"
	"github.com/hpungsan/stopka/internal/render"
	"github.com/hpungsan/stopka/internal/snapshot"
)

// runtime holds what the Before hook prepares for every command.
type runtime struct {
	cfg *config.Config
	log *zap.Logger
}

// newCLIApp creates the CLI application with all commands.
// A nil logger means one is built from the --verbose flag.
func newCLIApp(logger *zap.Logger) *cli.App {
	rt := &runtime{log: logger}

	app := &cli.App{
		Name:    "stopka",
		Usage:   "Generate e-mail footers from Asana task notes",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: ".", Usage: "Base directory holding config.json, .env, snapshots and output"},
			&cli.StringFlag{Name: "store", Usage: "Snapshot backend: file|sqlite (overrides config)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("dir"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err)))
			}
			if store := c.String("store"); store != "" {
				cfg.Store = store
			}
			if err := cfg.ValidateStore(); err != nil {
				return outputError(err)
			}
			rt.cfg = cfg

			if rt.log == nil {
				rt.log, err = newLogger(c.Bool("verbose"))
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			return nil
		},
		After: func(_ *cli.Context) error {
			if rt.log != nil {
				_ = rt.log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			fetchCmd(rt),
			renderCmd(rt),
			runCmd(rt),
			listCmd(rt),
			showCmd(rt),
			parseCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newLogger builds a production zap logger writing to stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func (rt *runtime) openStore() (snapshot.Store, error) {
	return snapshot.Open(rt.cfg.Store, rt.cfg.SnapshotDir)
}

func (rt *runtime) client() *asana.Client {
	return asana.NewClient(asana.Options{
		BaseURL:    rt.cfg.APIBaseURL,
		Token:      rt.cfg.AccessToken,
		HTTPClient: &http.Client{Timeout: rt.cfg.HTTPTimeout()},
	})
}

// fetchFlags are shared by fetch and run.
func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Asana project id (overrides PROJECT_ID)"},
		&cli.StringFlag{Name: "marker", Aliases: []string{"m"}, Usage: "Task name marker (overrides config)"},
	}
}

func (rt *runtime) fetchInput(c *cli.Context) ops.FetchInput {
	input := ops.FetchInput{ProjectID: rt.cfg.ProjectID, Marker: rt.cfg.Marker}
	if project := c.String("project"); project != "" {
		input.ProjectID = project
		rt.cfg.ProjectID = project
	}
	if marker := c.String("marker"); marker != "" {
		input.Marker = marker
	}
	return input
}

func (rt *runtime) fetch(c *cli.Context) (*ops.FetchOutput, error) {
	input := rt.fetchInput(c)
	if err := rt.cfg.ValidateRemote(true); err != nil {
		return nil, err
	}

	store, err := rt.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return ops.Fetch(c.Context, rt.client(), store, rt.log, input)
}

func (rt *runtime) render(c *cli.Context, upload bool) (*ops.RenderOutput, error) {
	var uploader ops.Uploader
	if upload {
		if err := rt.cfg.ValidateRemote(false); err != nil {
			return nil, err
		}
		uploader = rt.client()
	}

	renderer, err := render.New(rt.cfg.TemplateDir)
	if err != nil {
		return nil, err
	}

	store, err := rt.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return ops.Render(c.Context, store, renderer, uploader, rt.log, ops.RenderInput{
		OutputDir: rt.cfg.OutputDir,
		Upload:    upload,
	})
}

// fetchCmd creates the fetch command.
func fetchCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Read matching tasks from Asana and write one snapshot per task",
		Flags: fetchFlags(),
		Action: func(c *cli.Context) error {
			output, err := rt.fetch(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// renderCmd creates the render command.
func renderCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render every snapshot to HTML and attach it to its task",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-upload", Usage: "Only write HTML files, do not attach them"},
		},
		Action: func(c *cli.Context) error {
			output, err := rt.render(c, !c.Bool("no-upload"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// RunOutput combines both phases of the run command.
type RunOutput struct {
	Fetch  *ops.FetchOutput  `json:"fetch"`
	Render *ops.RenderOutput `json:"render"`
}

// runCmd creates the run command.
func runCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch, then render and upload",
		Flags: append(fetchFlags(), &cli.BoolFlag{Name: "no-upload", Usage: "Only write HTML files, do not attach them"}),
		Action: func(c *cli.Context) error {
			fetchOut, err := rt.fetch(c)
			if err != nil {
				return outputError(err)
			}
			renderOut, err := rt.render(c, !c.Bool("no-upload"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, RunOutput{Fetch: fetchOut, Render: renderOut})
		},
	}
}

// listCmd creates the list command.
func listCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored snapshot keys",
		Action: func(c *cli.Context) error {
			store, err := rt.openStore()
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			output, err := ops.List(c.Context, store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a snapshot with its derived fields",
		ArgsUsage: "<task-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("show takes exactly one task id"))
			}

			store, err := rt.openStore()
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			output, err := ops.Show(c.Context, store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// parseCmd creates the parse command.
func parseCmd() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse a task note read from stdin and print the result",
		Action: func(c *cli.Context) error {
			if f, ok := c.App.Reader.(*os.File); ok && isTerminal(f) {
				return outputError(errors.NewInvalidRequest("note must be piped via stdin"))
			}
			data, err := io.ReadAll(c.App.Reader)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, ops.Inspect(string(data)))
		},
	}
}

// Helper functions

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.StopkaError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// isTerminal returns true if f is a terminal (not piped).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
