package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/amirphl/workforce-ledger/app/dto"
	businessflow "github.com/amirphl/workforce-ledger/business_flow"
	"github.com/amirphl/workforce-ledger/config"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/spf13/cobra"
)

var (
	jsonOut bool

	ingestSource string
	ingestActor  string
	ingestFormat string

	deleteDates []string
	deleteActor string

	historyAsOf string
)

var rootCmd = &cobra.Command{
	Use:   "workforce-ledger",
	Short: "Call-center workforce hierarchy ledger",
	Long: `Ingests call-log exports and keeps the Team Manager / Team Leader / Agent
hierarchy of every agent in step with each upload.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a call-log export (csv or xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var deleteFileCmd = &cobra.Command{
	Use:   "delete-file <source>",
	Short: "Delete an uploaded file's rows, optionally only some log dates",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteFile,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List uploaded source files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

var datesCmd = &cobra.Command{
	Use:   "dates <source>",
	Short: "List the log dates present in an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDates,
}

var syncDirectoryCmd = &cobra.Command{
	Use:   "sync-directory",
	Short: "Rebuild agent_info and agent_list from the reconciled log",
	Args:  cobra.NoArgs,
	RunE:  runSyncDirectory,
}

var historyCmd = &cobra.Command{
	Use:   "history <agent>",
	Short: "Show the hierarchy state of an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source name recorded on every row (default: file base name)")
	ingestCmd.Flags().StringVar(&ingestActor, "actor", "", "user recorded in the activity log")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "", "input format: csv or xlsx (default: from extension)")

	deleteFileCmd.Flags().StringSliceVar(&deleteDates, "date", nil, "log date to delete (YYYY-MM-DD), repeatable")
	deleteFileCmd.Flags().StringVar(&deleteActor, "actor", "", "user recorded in the activity log")

	historyCmd.Flags().StringVar(&historyAsOf, "as-of", "", "timestamp to resolve the state at (default: latest)")

	rootCmd.AddCommand(migrateCmd, ingestCmd, deleteFileCmd, filesCmd, datesCmd, syncDirectoryCmd, historyCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// withApp loads configuration, wires the application and runs fn with a signal-aware context
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *Application) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	app, err := initializeApplication(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, app)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *Application) error {
		if err := app.migrate(); err != nil {
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: "database migrated"})
	})
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	source := ingestSource
	if source == "" {
		source = filepath.Base(path)
	}

	return withApp(cmd, func(ctx context.Context, app *Application) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		format := ingestFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		}

		resp, err := app.ingestion.Ingest(ctx, &dto.IngestRequest{
			Reader:     f,
			SourceName: source,
			Format:     format,
			Actor:      ingestActor,
		})
		if err != nil {
			_ = printResult(dto.APIResponse{
				Success: false,
				Message: "ingestion failed",
				Error:   dto.ErrorDetail{Code: businessflow.ErrorCode(err), Details: err.Error()},
			})
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: resp.Message, Data: resp})
	})
}

func runDeleteFile(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *Application) error {
		resp, err := app.files.DeleteFile(ctx, &dto.DeleteFileRequest{
			SourceName: args[0],
			Dates:      deleteDates,
			Actor:      deleteActor,
		})
		if err != nil {
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: resp.Message, Data: resp})
	})
}

func runFiles(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *Application) error {
		files, err := app.files.ListFiles(ctx)
		if err != nil {
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: fmt.Sprintf("%d files", len(files)), Data: files})
	})
}

func runDates(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *Application) error {
		dates, err := app.files.ListDates(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: fmt.Sprintf("%d dates", len(dates)), Data: dates})
	})
}

func runSyncDirectory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *Application) error {
		n, err := app.directory.Sync(ctx, nil)
		if err != nil {
			return err
		}
		return printResult(dto.APIResponse{Success: true, Message: fmt.Sprintf("%d agents refreshed", n)})
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	req := &dto.AgentStateRequest{AgentName: args[0]}
	if historyAsOf != "" {
		asOf := utils.ParseLogTime(historyAsOf)
		if asOf == nil {
			return fmt.Errorf("invalid --as-of value %q", historyAsOf)
		}
		req.AsOf = asOf
	}

	return withApp(cmd, func(ctx context.Context, app *Application) error {
		resp, err := app.agentState.State(ctx, req)
		if err != nil {
			return err
		}
		msg := "no history"
		if resp.Found {
			msg = fmt.Sprintf("%s: %s, %s", resp.AgentName, resp.Designation, resp.Status)
		}
		return printResult(dto.APIResponse{Success: true, Message: msg, Data: resp})
	})
}

// printResult writes the JSON envelope with --json, else the message and any list data
func printResult(resp dto.APIResponse) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Message)
	if items, ok := resp.Data.([]string); ok {
		for _, item := range items {
			fmt.Println("  " + item)
		}
	}
	if resp.Error != nil {
		if detail, ok := resp.Error.(dto.ErrorDetail); ok {
			fmt.Printf("  %s: %v\n", detail.Code, detail.Details)
		}
	}
	return nil
}
