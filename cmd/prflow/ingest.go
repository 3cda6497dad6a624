package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/prflow/internal/config"
	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/db"
	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/observability"
	"github.com/jonathan/prflow/internal/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add companies and press releases to the record store",
}

var ingestCompanyCmd = &cobra.Command{
	Use:   "company",
	Short: "Add or update one company",
	RunE:  runIngestCompany,
}

var ingestReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Crawl and store one press release",
	RunE:  runIngestRelease,
}

var ingestBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Import companies or press releases from a CSV file",
	Long: `Import a CSV file. Company files need ticker and name columns (sector optional).
Press release files need url, title and date columns (ticker optional); every row is crawled.`,
	RunE: runIngestBulk,
}

var (
	ingestTicker     string
	ingestName       string
	ingestSector     string
	ingestURL        string
	ingestTitle      string
	ingestDate       string
	ingestUseBrowser bool
	bulkCompanies    string
	bulkReleases     string
	bulkConcurrency  int
)

func init() {
	ingestCompanyCmd.Flags().StringVar(&ingestTicker, "ticker", "", "Company ticker (required)")
	ingestCompanyCmd.Flags().StringVar(&ingestName, "name", "", "Company name (required)")
	ingestCompanyCmd.Flags().StringVar(&ingestSector, "sector", "", "Company sector")
	for _, f := range []string{"ticker", "name"} {
		if err := ingestCompanyCmd.MarkFlagRequired(f); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", f, err))
		}
	}

	ingestReleaseCmd.Flags().StringVarP(&ingestURL, "url", "u", "", "Press release URL (required)")
	ingestReleaseCmd.Flags().StringVar(&ingestTicker, "ticker", "", "Company ticker (required)")
	ingestReleaseCmd.Flags().StringVar(&ingestTitle, "title", "", "Press release title (required)")
	ingestReleaseCmd.Flags().StringVar(&ingestDate, "date", "", "Publication time, ISO 8601 or YYYY-MM-DD (required)")
	for _, f := range []string{"url", "ticker", "title", "date"} {
		if err := ingestReleaseCmd.MarkFlagRequired(f); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", f, err))
		}
	}

	ingestBulkCmd.Flags().StringVar(&bulkCompanies, "companies", "", "CSV file of companies")
	ingestBulkCmd.Flags().StringVar(&bulkReleases, "releases", "", "CSV file of press releases")
	ingestBulkCmd.Flags().IntVar(&bulkConcurrency, "concurrency", 0, "Rows crawled at once")
	ingestBulkCmd.MarkFlagsOneRequired("companies", "releases")
	ingestBulkCmd.MarkFlagsMutuallyExclusive("companies", "releases")

	for _, c := range []*cobra.Command{ingestReleaseCmd, ingestBulkCmd} {
		c.Flags().BoolVar(&ingestUseBrowser, "use-browser", false, "Re-render thin pages with headless Chrome")
	}

	ingestCmd.AddCommand(ingestCompanyCmd, ingestReleaseCmd, ingestBulkCmd)
	rootCmd.AddCommand(ingestCmd)
}

// newIngestService wires the crawler and the store into an ingestion service.
func newIngestService(cmd *cobra.Command, cfg config.Config, database *db.DB) *ingestion.Service {
	useBrowser := cfg.UseBrowser
	if cmd.Flags().Changed("use-browser") {
		useBrowser = ingestUseBrowser
	}
	concurrency := cfg.BulkConcurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = bulkConcurrency
	}
	crawler := crawling.New(time.Duration(cfg.CrawlTimeout), useBrowser, cfg.Verbose)
	return ingestion.NewService(database, crawler, ingestion.Options{
		Concurrency: concurrency,
		Verbose:     cfg.Verbose,
	})
}

// withIngestService opens the database and hands fn a ready service.
func withIngestService(cmd *cobra.Command, fn func(context.Context, *ingestion.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(ctx, newIngestService(cmd, cfg, database))
}

func runIngestCompany(cmd *cobra.Command, _ []string) error {
	return withIngestService(cmd, func(ctx context.Context, svc *ingestion.Service) error {
		req := types.CreateCompanyRequest{Ticker: ingestTicker, Name: ingestName}
		if ingestSector != "" {
			req.Sector = &ingestSector
		}
		company, err := svc.AddCompany(ctx, req)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintCompanies([]types.Company{*company})
		return nil
	})
}

func runIngestRelease(cmd *cobra.Command, _ []string) error {
	return withIngestService(cmd, func(ctx context.Context, svc *ingestion.Service) error {
		saved, err := svc.AddPressRelease(ctx, types.CreatePressReleaseRequest{
			URL:     ingestURL,
			Ticker:  ingestTicker,
			Title:   ingestTitle,
			PressTS: ingestDate,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Saved press release %s\n", saved.ID)
		observability.NewPrinter(out).PrintPending(saved.URL, saved.Pending)
		return nil
	})
}

func runIngestBulk(cmd *cobra.Command, _ []string) error {
	path := bulkCompanies
	if path == "" {
		path = bulkReleases
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return withIngestService(cmd, func(ctx context.Context, svc *ingestion.Service) error {
		p := observability.NewPrinter(cmd.OutOrStdout())
		if bulkCompanies != "" {
			added, err := svc.AddCompaniesCSV(ctx, f)
			if err != nil {
				return err
			}
			p.PrintCompanies(added)
			return nil
		}

		results, err := svc.AddPressReleasesCSV(ctx, f)
		if err != nil {
			return err
		}
		p.PrintBulkResults(results)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ingestion.Summarize(results).Message)
		return nil
	})
}
