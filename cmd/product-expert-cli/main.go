// Package main provides the product-expert CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coldstore-ai/product-expert/internal/config"
	"github.com/coldstore-ai/product-expert/internal/generate"
	"github.com/coldstore-ai/product-expert/internal/ingest"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/recommend"
	"github.com/coldstore-ai/product-expert/internal/retrieval"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

var version = "dev"

var (
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

var rootCmd = &cobra.Command{
	Use:   "product-expert-cli",
	Short: "Catalog CLI for ingestion, retrieval, and administration",
	Long: `product-expert-cli manages the cold-storage equipment catalog.

Use this tool to:
- Ingest spec sheets, brochures, and manuals
- Ask questions answered from ingested documentation
- Recommend and compare products for a use case
- Review spec conflicts and pending registry entries

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Logging.Level
		if !verbose {
			// Keep command output readable; engines still log warnings.
			level = "warn"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			ServiceName: "product-expert-cli",
		})
		ui = NewUI(outputJSON, noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newProductsCmd())
	rootCmd.AddCommand(newConflictsCmd())
	rootCmd.AddCommand(newRegistryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var (
		submittedBy string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest spec sheets, brochures, or manuals into the catalog",
		Long: `Ingest runs the full pipeline on each file: extraction, classification,
model resolution, field mapping, conflict-aware upsert, chunking, and
embedding. Duplicate uploads (same bytes) are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			files := make([]ingest.FileInput, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, ingest.FileInput{Filename: filepath.Base(path), Data: data})
			}

			if submittedBy == "" {
				submittedBy = os.Getenv("USER")
				if submittedBy == "" {
					submittedBy = "cli"
				}
			}

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			orch := a.newOrchestrator()
			orch.Start(ctx)
			started := time.Now()
			job, err := orch.Submit(ctx, files, submittedBy)
			if err != nil {
				orch.Stop()
				return fmt.Errorf("submit: %w", err)
			}

			bar := ui.ProgressBar("ingesting", len(files))
			job, err = waitForJob(ctx, a, job.ID, func(done int) {
				if bar != nil {
					_ = bar.Set(done)
				}
			})
			orch.Stop()
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(job)
			}
			ui.Success("Ingestion %s in %s", job.Status, FormatDuration(time.Since(started)))
			ui.KeyValue("Job ID", job.ID)
			ui.KeyValue("Processed", fmt.Sprintf("%d/%d (%d failed, %d duplicates)",
				job.ProcessedFiles, job.TotalFiles, job.FailedFiles, job.SkippedDuplicates))
			ui.KeyValue("Products", fmt.Sprintf("%d new, %d updated", job.NewProducts, job.UpdatedProducts))
			ui.KeyValue("Chunks", job.ChunksCreated)
			if job.ConflictsFound > 0 {
				ui.Warning("%d spec conflicts need review (product-expert-cli conflicts list)", job.ConflictsFound)
			}
			if job.NewSpecsDiscovered > 0 {
				ui.Info("%d new spec fields discovered (product-expert-cli registry pending)", job.NewSpecsDiscovered)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&submittedBy, "submitted-by", "", "operator name for the audit trail")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall ingestion timeout")
	return cmd
}

// waitForJob polls until the job reaches a terminal status.
func waitForJob(ctx context.Context, a *app, id uuid.UUID, progress func(done int)) (*storage.IngestionJob, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			job, err := a.repos.Jobs.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			progress(job.ProcessedFiles + job.FailedFiles)
			if job.Status == storage.JobStatusCompleted || job.Status == storage.JobStatusFailed {
				return job, nil
			}
		}
	}
}

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from ingested documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			stop := ui.Spinner("retrieving context")
			pack, err := a.retrieval.Retrieve(ctx, question)
			stop()
			if err != nil {
				return err
			}

			stop = ui.Spinner("generating answer")
			answer, genErr := a.generator.Generate(ctx, retrieval.BuildPrompt(pack, question),
				generate.Params{MaxTokens: cfg.Generator.MaxTokens})
			stop()

			if genErr != nil {
				if !errors.Is(genErr, generate.ErrGeneratorUnavailable) {
					return genErr
				}
				ui.Warning("generator unavailable, showing retrieved context only")
				if outputJSON {
					return printJSON(map[string]interface{}{"degraded": true, "context": pack})
				}
				fmt.Println(pack.Text())
				return nil
			}

			grounding := retrieval.CheckGrounding(answer, pack)
			if outputJSON {
				return printJSON(map[string]interface{}{
					"answer":    answer,
					"grounded":  grounding.Grounded(),
					"grounding": grounding,
					"degraded":  pack.Degraded,
				})
			}
			fmt.Println(answer)
			if !grounding.Grounded() {
				ui.Warning("answer contains figures not found in the source documents: %s",
					strings.Join(append(grounding.UnsupportedNumbers, grounding.UnsupportedModels...), ", "))
			}
			if pack.Degraded {
				ui.Warning("semantic search was unavailable; answer based on keyword matches only")
			}
			if showContext {
				ui.Section("Context")
				fmt.Println(pack.Text())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context after the answer")
	return cmd
}

// newSearchCmd creates the search subcommand (retrieval without generation).
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run hybrid retrieval and show the matched chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			pack, err := a.retrieval.Retrieve(ctx, query)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(pack)
			}

			ui.KeyValue("Intent", pack.Query.Intent)
			if len(pack.Query.ModelNumbers) > 0 {
				ui.KeyValue("Models", strings.Join(pack.Query.ModelNumbers, ", "))
			}
			rows := make([][]string, 0, len(pack.Chunks))
			for _, rc := range pack.Chunks {
				snippet := rc.Chunk.Content
				if len(snippet) > 80 {
					snippet = snippet[:77] + "..."
				}
				rows = append(rows, []string{
					fmt.Sprintf("%.3f", rc.Score),
					rc.Chunk.SectionTitle,
					strings.ReplaceAll(snippet, "\n", " "),
				})
			}
			ui.Table([]string{"SCORE", "SECTION", "CONTENT"}, rows)
			if pack.Degraded {
				ui.Warning("semantic search unavailable, keyword matches only")
			}
			return nil
		},
	}
	return cmd
}

// newRecommendCmd creates the recommend subcommand.
func newRecommendCmd() *cobra.Command {
	var (
		useCase string
		family  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "recommend [free text...]",
		Short: "Recommend products for a use case",
		Long: `Recommend ranks active products against a use-case profile. Name a
profile with --use-case, or describe the need in free text:

  product-expert-cli recommend --use-case vaccine_storage
  product-expert-cli recommend "undercounter fridge for a busy pharmacy"

Run 'product-expert-cli recommend use-cases' to list profiles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.recommend.Recommend(ctx, recommend.Request{
				UseCase:     useCase,
				UseCaseText: strings.Join(args, " "),
				FamilyCode:  family,
				MaxResults:  limit,
			})
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(resp)
			}

			ui.KeyValue("Use case", resp.UseCase)
			ui.KeyValue("Profile", resp.Profile)
			rows := make([][]string, 0, len(resp.Results))
			for i, r := range resp.Results {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					r.Product.ModelNumber,
					r.Product.BrandCode,
					fmt.Sprintf("%.2f", r.Score),
					strings.Join(r.Trace, "; "),
				})
			}
			ui.Table([]string{"#", "MODEL", "BRAND", "SCORE", "WHY"}, rows)
			for _, ex := range resp.Excluded {
				ui.Info("excluded: %s", ex)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use-cases",
		Short: "List the available use-case profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cases := recommend.UseCases()
			if outputJSON {
				return printJSON(cases)
			}
			rows := make([][]string, 0, len(cases))
			for _, c := range cases {
				rows = append(rows, []string{c["name"], c["description"]})
			}
			ui.Table([]string{"USE CASE", "DESCRIPTION"}, rows)
			return nil
		},
	})

	cmd.Flags().StringVar(&useCase, "use-case", "", "profile name")
	cmd.Flags().StringVar(&family, "family", "", "restrict to a product family")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (default 5)")
	return cmd
}

// newCompareCmd creates the compare subcommand.
func newCompareCmd() *cobra.Command {
	var differencesOnly bool
	cmd := &cobra.Command{
		Use:   "compare <model> <model> [model...]",
		Short: "Compare 2-4 products spec by spec",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				p, err := lookupProduct(ctx, a, arg)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				ids = append(ids, p.ID)
			}

			cmp, err := a.comparer.Compare(ctx, ids, differencesOnly)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmp)
			}

			headers := []string{"SPEC"}
			for _, p := range cmp.Products {
				headers = append(headers, p.ModelNumber)
			}
			rows := make([][]string, 0, len(cmp.Rows))
			for _, row := range cmp.Rows {
				label := row.DisplayName
				if row.Unit != "" {
					label += " (" + row.Unit + ")"
				}
				if row.Differs {
					label = "* " + label
				}
				rows = append(rows, append([]string{label}, row.Values...))
			}
			ui.Table(headers, rows)
			ui.Info("%s", cmp.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&differencesOnly, "differences", false, "show only specs where the products differ")
	return cmd
}

// lookupProduct accepts a product UUID or a model number.
func lookupProduct(ctx context.Context, a *app, idOrModel string) (*storage.Product, error) {
	if id, err := uuid.Parse(idOrModel); err == nil {
		return a.repos.Products.GetByID(ctx, id)
	}
	return a.repos.Products.GetByModelNumber(ctx, idOrModel)
}

// newProductsCmd creates the products subcommand group.
func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the product catalog",
	}

	var (
		family string
		brand  string
		status string
		prefix string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			products, err := a.repos.Products.List(ctx, storage.ProductFilter{
				FamilyCode:  family,
				BrandCode:   brand,
				Status:      storage.ProductStatus(status),
				ModelPrefix: prefix,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(products)
			}
			rows := make([][]string, 0, len(products))
			for _, p := range products {
				rows = append(rows, []string{
					p.ModelNumber, p.BrandCode, p.FamilyCode, string(p.Status),
					fmt.Sprintf("%d", len(p.Specs)),
				})
			}
			ui.Table([]string{"MODEL", "BRAND", "FAMILY", "STATUS", "SPECS"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&family, "family", "", "filter by family code")
	list.Flags().StringVar(&brand, "brand", "", "filter by brand code")
	list.Flags().StringVar(&status, "status", "", "filter by status")
	list.Flags().StringVar(&prefix, "prefix", "", "model number prefix")
	list.Flags().IntVar(&limit, "limit", 50, "max results")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <model-or-id>",
		Short: "Show one product with all specs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := lookupProduct(ctx, a, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(p)
			}
			ui.Section(p.ModelNumber)
			ui.KeyValue("Brand", p.BrandCode)
			ui.KeyValue("Family", p.FamilyCode)
			ui.KeyValue("Status", p.Status)
			ui.KeyValue("Version", p.Version)
			if len(p.Certifications) > 0 {
				ui.KeyValue("Certifications", strings.Join(p.Certifications, ", "))
			}
			rows := make([][]string, 0, len(p.Specs))
			for name, v := range p.Specs {
				rows = append(rows, []string{name, v.String()})
			}
			ui.Table([]string{"SPEC", "VALUE"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "equivalents <model-or-id>",
		Short: "Find interchangeable products across brands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := lookupProduct(ctx, a, args[0])
			if err != nil {
				return err
			}
			eqs, err := a.equiv.Find(ctx, p.ID)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(eqs)
			}
			rows := make([][]string, 0, len(eqs))
			for _, e := range eqs {
				rows = append(rows, []string{
					e.Product.ModelNumber, e.Product.BrandCode,
					fmt.Sprintf("%.0f%%", e.Similarity*100),
					strings.Join(e.Mismatched, ", "),
				})
			}
			ui.Table([]string{"MODEL", "BRAND", "SIMILARITY", "DIFFERS ON"}, rows)
			return nil
		},
	})

	return cmd
}

// newConflictsCmd creates the conflicts subcommand group.
func newConflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review and resolve spec conflicts",
	}

	var (
		severity   string
		resolution string
		limit      int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List spec conflicts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.repos.Conflicts.List(ctx, storage.ConflictFilter{
				Severity:   storage.ConflictSeverity(severity),
				Resolution: storage.ConflictResolution(resolution),
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(items)
			}
			rows := make([][]string, 0, len(items))
			for _, c := range items {
				rows = append(rows, []string{
					c.ID.String()[:8], c.SpecName, string(c.Severity),
					c.ExistingValue, c.NewValue, string(c.Resolution),
				})
			}
			ui.Table([]string{"ID", "SPEC", "SEVERITY", "EXISTING", "INCOMING", "STATUS"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&severity, "severity", "", "filter by severity (medium, critical)")
	list.Flags().StringVar(&resolution, "resolution", string(storage.ResolutionPending), "filter by resolution status")
	list.Flags().IntVar(&limit, "limit", 50, "max results")
	cmd.AddCommand(list)

	var (
		ruling string
		value  string
		actor  string
	)
	resolve := &cobra.Command{
		Use:   "resolve <conflict-id>",
		Short: "Apply a ruling to a pending conflict",
		Long: `Resolve closes a conflict. Rulings:

  keep_existing    keep the current product value
  accept_new       take the conflicting document's value
  manual_override  write the value given with --value
  dismissed        close without action (false positive)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid conflict id: %w", err)
			}
			res := storage.ConflictResolution(ruling)
			if !res.Terminal() {
				return fmt.Errorf("invalid resolution %q", ruling)
			}
			if actor == "" {
				actor = os.Getenv("USER")
				if actor == "" {
					actor = "cli"
				}
			}

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.conflicts.Resolve(ctx, id, res, value, actor)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(c)
			}
			ui.Success("conflict on %s resolved: %s", c.SpecName, c.Resolution)
			return nil
		},
	}
	resolve.Flags().StringVar(&ruling, "resolution", "", "ruling (required)")
	resolve.Flags().StringVar(&value, "value", "", "value for manual_override")
	resolve.Flags().StringVar(&actor, "actor", "", "reviewer name for the audit trail")
	_ = resolve.MarkFlagRequired("resolution")
	cmd.AddCommand(resolve)

	return cmd
}

// newRegistryCmd creates the registry subcommand group.
func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the spec field registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List auto-discovered spec fields awaiting approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.registry.PendingApproval(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CanonicalName, e.DisplayName, string(e.DataType), e.Unit,
				})
			}
			ui.Table([]string{"CANONICAL NAME", "DISPLAY NAME", "TYPE", "UNIT"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <canonical-name>",
		Short: "Approve a pending spec field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.registry.Approve(ctx, args[0]); err != nil {
				return err
			}
			ui.Success("approved %s", args[0])
			return nil
		},
	})

	return cmd
}

// newStatsCmd creates the stats subcommand.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			products, err := a.repos.Products.Count(ctx)
			if err != nil {
				return err
			}
			documents, err := a.repos.Documents.Count(ctx, "")
			if err != nil {
				return err
			}
			chunks, embedded, err := a.repos.Chunks.Count(ctx)
			if err != nil {
				return err
			}
			openConflicts, err := a.repos.Conflicts.CountOpen(ctx)
			if err != nil {
				return err
			}

			stats := map[string]interface{}{
				"products":        products,
				"documents":       documents,
				"chunks":          chunks,
				"chunks_embedded": embedded,
				"open_conflicts":  openConflicts,
				"driver":          a.store.Driver(),
				"lexical_docs":    a.lexical.DocCount(),
				"embedding_model": a.embedder.Model(),
			}
			if outputJSON {
				return printJSON(stats)
			}
			ui.Section("Catalog")
			ui.KeyValue("Products", products)
			ui.KeyValue("Documents", documents)
			ui.KeyValue("Chunks", fmt.Sprintf("%d (%d embedded)", chunks, embedded))
			ui.KeyValue("Open conflicts", openConflicts)
			ui.Section("Infrastructure")
			ui.KeyValue("Store driver", a.store.Driver())
			ui.KeyValue("Lexical docs", a.lexical.DocCount())
			ui.KeyValue("Embedding model", a.embedder.Model())
			return nil
		},
	}
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed the spec registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			// openApp migrates and seeds as part of startup.
			a, err := openApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			ui.Success("schema up to date (%s)", a.store.Driver())
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("product-expert-cli %s\n", version)
		},
	}
}
