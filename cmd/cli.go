// Package cmd provides the ioclens command-line interface.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"ioclens/bootstrap"
	"ioclens/config"
	"ioclens/core"
	"ioclens/service"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputFormat string
	configFile   string
	noColor      bool
	quiet        bool
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"

	// analyses wait on a scrape and an LLM call
	defaultTimeout = 5 * time.Minute
)

type analyzer interface {
	Analyze(ctx context.Context, url string, ownerUserID *int64) (*service.AnalysisResult, error)
}

type queryGenerator interface {
	Generate(ctx context.Context, indicators []core.Indicator, iocID *int64) (*core.SearchQueryResult, error)
}

type historyReader interface {
	List(ctx context.Context, userID int64) ([]core.HistorySummary, error)
	Lookup(ctx context.Context, id int64) (*core.AnalysisRecord, error)
	LookupSearchQueries(ctx context.Context, recordID int64) (*core.SearchQueryRecord, error)
}

// cliServices is the subset of the service layer the commands use
type cliServices struct {
	Analysis analyzer
	Queries  queryGenerator
	History  historyReader
}

// openServices builds the services against the configured store. The returned
// cleanup closes the store. Tests replace it.
var openServices = func(ctx context.Context) (*cliServices, func(), error) {
	logger, sugar, err := bootstrap.InitCLILogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadConfigFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := bootstrap.EnsureDataDirectories(cfg, sugar); err != nil {
		return nil, nil, err
	}

	svc, err := bootstrap.InitServices(ctx, cfg, sugar)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			sugar.Warnf("Failed to close services during cleanup: %v", err)
		}
		_ = logger.Sync()
	}

	return &cliServices{
		Analysis: svc.Analysis,
		Queries:  svc.Queries,
		History:  svc.History,
	}, cleanup, nil
}

// NewRootCmd creates the ioclens command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ioclens",
		Short: "Extract indicators of compromise from threat reports",
		Long: `IOC Lens reads a threat report URL, extracts indicators of compromise and
generates QRadar and Sentinel hunting queries for them.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			switch outputFormat {
			case formatText, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (use text, json or yaml)", outputFormat)
			}
		},
	}

	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatText, "Output format (text, json, yaml)")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newQueriesCmd())

	return root
}

// IsSubcommand reports whether name selects a CLI command rather than the server
func IsSubcommand(name string) bool {
	switch name {
	case "-h", "--help", "help", "completion":
		return true
	}
	for _, c := range NewRootCmd().Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

// Execute runs the root command and prints any error to stderr
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		errorColor.Fprintf(stderr, "Error: %s\n", describeError(err))
	}
	return err
}

// newAnalyzeCmd creates the 'analyze' subcommand
func newAnalyzeCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a threat report URL",
		Long: `Retrieve the page at <url>, extract its indicators and store the record.
A URL that was analyzed before is returned from the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var owner *int64
			if cmd.Flags().Changed("user") {
				owner = &userID
			}

			stop := startSpinner(cmd, " Analyzing "+args[0])
			result, err := svc.Analysis.Analyze(ctx, args[0], owner)
			stop()
			if err != nil {
				return err
			}

			if outputFormat != formatText {
				return writeStructured(cmd.OutOrStdout(), analysisOutput{
					Message:    result.Message,
					Origin:     result.Origin,
					ID:         result.Record.ID,
					URL:        result.Record.URL,
					CreatedAt:  result.Record.CreatedAt,
					Indicators: result.IOCResult,
				})
			}

			out := cmd.OutOrStdout()
			if !quiet {
				if result.Origin == core.OriginCache {
					infoColor.Fprintf(out, "%s (record %d)\n\n", result.Message, result.Record.ID)
				} else {
					successColor.Fprintf(out, "✓ Analysis stored as record %d\n\n", result.Record.ID)
				}
			}
			renderRecord(out, result.Record)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Owner user id for the stored record")

	return cmd
}

// analysisOutput is the structured form of an analysis, matching the API response
type analysisOutput struct {
	Message    string         `json:"message,omitempty"`
	Origin     core.Origin    `json:"origin"`
	ID         int64          `json:"id"`
	URL        string         `json:"url"`
	CreatedAt  string         `json:"createdAt"`
	Indicators core.IOCResult `json:"indicators"`
}

// newHistoryCmd creates the 'history' subcommand
func newHistoryCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List a user's analyses",
		Long:    "Display the analyses owned by a user in the order they were made, with indicator counts and highest risk.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summaries, err := svc.History.List(ctx, userID)
			if err != nil {
				return err
			}

			if outputFormat != formatText {
				return writeStructured(cmd.OutOrStdout(), summaries)
			}
			renderHistoryTable(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id whose history to list")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// newShowCmd creates the 'show' subcommand
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show an analysis record",
		Long:  "Display the stored indicators of one analysis record grouped by category.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			record, err := svc.History.Lookup(ctx, id)
			if err != nil {
				return err
			}

			if outputFormat != formatText {
				return writeStructured(cmd.OutOrStdout(), record)
			}
			renderRecord(cmd.OutOrStdout(), record)
			return nil
		},
	}
}

// newQueriesCmd creates the 'queries' subcommand
func newQueriesCmd() *cobra.Command {
	var (
		save   bool
		stored bool
	)

	cmd := &cobra.Command{
		Use:   "queries <record-id>",
		Short: "Generate SIEM queries for a record",
		Long: `Generate QRadar and Sentinel queries for the indicators of a stored record.
With --save the generated queries are stored against the record; with --stored
the previously saved queries are printed instead of generating new ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			if save && stored {
				return fmt.Errorf("--save and --stored cannot be combined")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if stored {
				saved, err := svc.History.LookupSearchQueries(ctx, id)
				if err != nil {
					return err
				}
				result := core.SearchQueryResult{QRadar: saved.QRadarQueries, Sentinel: saved.SentinelQueries}
				if outputFormat != formatText {
					return writeStructured(cmd.OutOrStdout(), result)
				}
				renderQueries(cmd.OutOrStdout(), &result)
				return nil
			}

			record, err := svc.History.Lookup(ctx, id)
			if err != nil {
				return err
			}

			var iocID *int64
			if save {
				iocID = &record.ID
			}

			stop := startSpinner(cmd, " Generating queries")
			result, err := svc.Queries.Generate(ctx, record.Indicators.Indicators, iocID)
			stop()
			if err != nil {
				return err
			}

			if outputFormat != formatText {
				return writeStructured(cmd.OutOrStdout(), result)
			}
			renderQueries(cmd.OutOrStdout(), result)
			if save && !quiet {
				successColor.Fprintf(cmd.OutOrStdout(), "✓ Queries saved for record %d\n", record.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the generated queries against the record")
	cmd.Flags().BoolVar(&stored, "stored", false, "Print previously saved queries")

	return cmd
}

func parseRecordID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

// startSpinner shows progress on stderr for text output. The returned func stops it.
func startSpinner(cmd *cobra.Command, suffix string) func() {
	if quiet || outputFormat != formatText {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

// writeStructured writes data as indented JSON or as YAML. YAML goes through
// JSON first so both formats share the API field names.
func writeStructured(w io.Writer, data interface{}) error {
	if outputFormat == formatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// describeError renders service errors with their message and field details
func describeError(err error) string {
	var e *core.Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (at %s)", msg, e.Path)
	}
	for _, d := range e.Details {
		msg += "\n  - " + d
	}
	if e.Upstream {
		msg += "\n  (rejected payload came from an upstream service)"
	}
	return msg
}
