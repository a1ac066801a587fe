package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/scheduler"
	"github.com/teemow/voicecal/internal/toolerr"
)

type createOptions struct {
	request  scheduler.Request
	dryRun   bool
	calendar calendarFlags
}

func newCreateCmd() *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create one calendar event from the command line",
		Long: `Create one calendar event the same way the voice endpoints do and print
the JSON result.

Examples:
  voicecal create --name "Ada Lovelace" --datetime "tomorrow at 5pm"
  voicecal create --name Ada --datetime "next friday 9:30am" --duration 45 \
      --invitee grace@example.com --timezone Europe/Berlin
  voicecal create --name Ada --datetime "in 2 hours" --dry-run

With --dry-run the request is validated and normalized but Google is not
contacted, so no credentials are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.request.Name, "name", "", "Name of the person scheduling (required)")
	cmd.Flags().StringVar(&opts.request.When, "datetime", "", `When the event starts, e.g. "tomorrow at 5pm" (required)`)
	cmd.Flags().StringVar(&opts.request.Title, "title", "", "Event title (default: DEFAULT_EVENT_TITLE)")
	cmd.Flags().IntVar(&opts.request.DurationMinutes, "duration", 0, "Duration in minutes (default: DEFAULT_DURATION_MINUTES)")
	cmd.Flags().StringVar(&opts.request.TimeZone, "event-timezone", "", "IANA time zone of the spoken time (default: --timezone)")
	cmd.Flags().StringSliceVar(&opts.request.Invitees, "invitee", nil, "Invitee e-mail address (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Normalize the request and print the event without creating it")
	opts.calendar.register(cmd)

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("datetime")

	return cmd
}

func runCreate(cmd *cobra.Command, out io.Writer, opts createOptions) error {
	if opts.dryRun {
		cfg, err := readConfig(cmd, &opts.calendar)
		if err != nil {
			return err
		}
		sched := scheduler.New(nil, nil, scheduler.OptionsFromConfig(cfg))
		ev, err := sched.Normalize(opts.request)
		if err != nil {
			return printFailure(out, err)
		}
		return printJSON(out, ev.Preview())
	}

	cfg, err := loadConfig(cmd, &opts.calendar)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, 3*cfg.HTTPTimeout)
	defer cancel()

	// One-shot runs have no meter provider; Metrics methods are nil-safe.
	var metrics *instrumentation.Metrics

	sched, closeCache, err := buildScheduler(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeCache()

	result, err := sched.Schedule(ctx, opts.request)
	if err != nil {
		return printFailure(out, err)
	}
	return printJSON(out, result)
}

// printFailure writes the error descriptor and returns an error carrying
// its kind so the process exits non-zero.
func printFailure(out io.Writer, err error) error {
	desc := toolerr.Describe(err)
	if perr := printJSON(out, desc); perr != nil {
		return perr
	}
	return fmt.Errorf("%s: %s", desc.Kind, desc.Message)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
