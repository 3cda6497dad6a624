package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/prflow/internal/client"
	"github.com/jonathan/prflow/internal/console"
	"github.com/jonathan/prflow/internal/observability"
	"github.com/jonathan/prflow/internal/types"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Browse press releases and submit runs through a running server",
	Long: `Without --ticker, lists companies. With --ticker, lists that company's press releases
newest first. Add --id to show which runs the release allows, then --run or --processed to act on it.`,
	RunE: runReleases,
}

var (
	releasesAPIURL    string
	releasesTicker    string
	releasesID        string
	releasesRun       string
	releasesProcessed bool
)

func init() {
	releasesCmd.Flags().StringVar(&releasesAPIURL, "api-url", "", "Server base URL (default http://localhost:8000, or PRFLOW_API_URL env var)")
	releasesCmd.Flags().StringVarP(&releasesTicker, "ticker", "t", "", "Company ticker")
	releasesCmd.Flags().StringVar(&releasesID, "id", "", "Press release ID to select")
	releasesCmd.Flags().StringVar(&releasesRun, "run", "", "Submit the selected release: all_till_today or only_this")
	releasesCmd.Flags().BoolVar(&releasesProcessed, "processed", false, "Mark the selected release processed")
	releasesCmd.MarkFlagsMutuallyExclusive("run", "processed")
	rootCmd.AddCommand(releasesCmd)
}

// browseOptions selects what browse shows and does.
type browseOptions struct {
	Ticker    string
	ReleaseID uuid.UUID
	Mode      types.RunMode
	Processed bool
}

func runReleases(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = releasesAPIURL
	}

	opts := browseOptions{
		Ticker:    releasesTicker,
		Mode:      types.RunMode(releasesRun),
		Processed: releasesProcessed,
	}
	if releasesID != "" {
		if opts.ReleaseID, err = uuid.Parse(releasesID); err != nil {
			return fmt.Errorf("invalid --id: %w", err)
		}
	}
	return browse(context.Background(), cmd.OutOrStdout(), client.New(cfg.APIURL), opts)
}

// browse drives a console session the way an operator would: pick a
// company, pick a release, check its gates, then act.
func browse(ctx context.Context, out io.Writer, api console.API, opts browseOptions) error {
	p := observability.NewPrinter(out)
	session := console.NewSession(api)

	if opts.Ticker == "" {
		if opts.ReleaseID != uuid.Nil || opts.Mode != "" || opts.Processed {
			return fmt.Errorf("--ticker is required to select a press release")
		}
		if err := session.LoadCompanies(ctx); err != nil {
			return err
		}
		p.PrintCompanies(session.Companies())
		return nil
	}

	if err := session.SelectCompany(ctx, opts.Ticker); err != nil {
		return err
	}
	if opts.ReleaseID == uuid.Nil {
		if opts.Mode != "" || opts.Processed {
			return fmt.Errorf("--id is required to act on a press release")
		}
		p.PrintReleases(session.Ticker(), session.Releases())
		return nil
	}

	if err := session.SelectRelease(ctx, opts.ReleaseID); err != nil {
		return err
	}
	p.PrintGates(session.Gates())

	switch {
	case opts.Processed:
		if err := session.MarkProcessed(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Marked %s processed\n", opts.ReleaseID)
		p.PrintReleases(session.Ticker(), session.Releases())
	case opts.Mode != "":
		accepted, err := submit(ctx, session, opts.Mode)
		if errors.Is(err, console.ErrGateClosed) {
			return fmt.Errorf("cannot run %s for %s: %w", opts.Mode, opts.ReleaseID, err)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Submitted run %s (%s)\n", accepted.RunID, accepted.Mode)
	}
	return nil
}

func submit(ctx context.Context, session *console.Session, mode types.RunMode) (*client.RunAccepted, error) {
	switch mode {
	case types.RunAllTillToday:
		return session.RunAllTillToday(ctx)
	case types.RunOnlyThis:
		return session.RunOnlyThis(ctx)
	default:
		return nil, fmt.Errorf("invalid --run %q: use %s or %s", mode, types.RunAllTillToday, types.RunOnlyThis)
	}
}
