package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"starmap-server/internal/auth"
	"starmap-server/internal/catalog"
	"starmap-server/internal/crossmatch"
	"starmap-server/internal/resolver"
	"starmap-server/internal/server"
	"starmap-server/internal/shared/database"
	"starmap-server/internal/sky"
)

func newResolveCmd(c *cli) *cobra.Command {
	var (
		radius      float64
		concurrency int
		offline     bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "resolve <objects.csv>",
		Short: "Resolve SAO numbers for a CSV of stars and print a report",
		Long: `Reads a CSV with at least ra and dec columns (source_id, magnitude,
spectral_type, name and sao are optional) and runs every row through the
local store, SIMBAD and VizieR in that order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := validateFormat(format); err != nil {
				return err
			}
			if radius == 0 {
				radius = c.cfg.CrossMatch.SearchRadiusArcsec
			}
			if err := resolver.ValidateRadius(radius); err != nil {
				return err
			}
			if concurrency == 0 {
				concurrency = c.cfg.CrossMatch.BatchConcurrency
			}

			objs, err := readObjectsFile(ctx, args[0])
			if err != nil {
				return err
			}

			app, err := server.NewApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := app.Resolver
			if offline {
				svc = resolver.NewService(app.Store, nil, c.logger)
			}

			result := svc.ResolveBatch(ctx, objs, radius, concurrency)
			out := cmd.OutOrStdout()
			if err := renderResolveReport(out, format, objs, result); err != nil {
				return err
			}
			if format == formatTable {
				fmt.Fprintln(out)
				return renderTierCounts(out, format, svc.Stats())
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&radius, "radius", 0, "local position search radius in arcseconds (default from XMATCH_SEARCH_RADIUS_ARCSEC)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "objects resolved in parallel (default from XMATCH_BATCH_CONCURRENCY)")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the local store only")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, csv or markdown")
	return cmd
}

func newLoadCatalogCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "load-catalog <catalog.csv> [number...]",
		Short: "Validate a catalog file and look up entries in it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := validateFormat(format); err != nil {
				return err
			}
			numbers := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				n, err := strconv.Atoi(arg)
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid catalog number %q", arg)
				}
				numbers = append(numbers, n)
			}

			svc := catalog.NewService(nil, nil, c.logger)
			loaded, err := svc.Load(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %d entries (%d cached) from %s\n", loaded, svc.Len(), args[0])
			if len(numbers) == 0 {
				return nil
			}

			var found []sky.CrossMatchEntry
			for _, n := range numbers {
				entry, ok := svc.FindByNumber(ctx, n)
				if !ok {
					c.logger.Warn("Catalog number not found", "sao_number", n)
					continue
				}
				found = append(found, entry)
			}
			return renderEntries(out, format, found)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, csv or markdown")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import-xmatch <xmatch.csv>",
		Short: "Import a cross-match CSV into the Postgres store",
		Long: `Reads a CSV with source_id, sao, ra and dec columns (separation optional)
and stores it in gaia_sao_xmatch in a single transaction, keeping the first
row for a repeated source_id and any row already stored. Migrations are
applied first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open cross-match file: %w", err)
			}
			defer f.Close()

			matches, err := crossmatch.ReadMatches(ctx, f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			db, err := database.Connect(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			repo := crossmatch.NewRepository(db, c.logger)
			start := time.Now()
			affected, err := repo.Import(ctx, matches, batchSize)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows (%d affected) in %s\n",
				len(matches), affected, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", crossmatch.DefaultImportBatchSize, "rows per INSERT statement")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the configured cross-match store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := validateFormat(format); err != nil {
				return err
			}
			app, err := server.NewApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Store == nil || !app.Store.Available() {
				return fmt.Errorf("no cross-match store configured (XMATCH_SOURCE=%q)", c.cfg.CrossMatch.Source)
			}

			stats, err := app.Store.Stats(ctx)
			if err != nil {
				return err
			}
			return renderStoreStats(cmd.OutOrStdout(), format, stats)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, csv or markdown")
	return cmd
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl == 0 {
				ttl = c.cfg.Auth.TokenExpiration
			}

			token, err := auth.GenerateToken(c.cfg.Auth.JWTSecret, subject, auth.RoleAdmin, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "xref", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from JWT_EXPIRATION_HOURS)")
	return cmd
}
