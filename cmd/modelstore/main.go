package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koba/modelstore/internal/schemafile"
	"github.com/koba/modelstore/pkg/modelstore"
	"github.com/koba/modelstore/pkg/schema"
)

var (
	driver    string
	dsns      []string
	tables    []string
	limit     int
	outputDir string
	verbose   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelstore",
	Short: "Model-to-table persistence tool",
	Long:  `A tool to migrate, inspect, and archive databases managed through declarative table definitions.`,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables",
	Long:  `List the user tables visible on each configured database.`,
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Show a table's live shape",
	Long:  `Introspect one table and print its columns, primary key, and indexes as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <schema.yaml>",
	Short: "Migrate databases to match a schema file",
	Long:  `Resolve every table declared in a YAML schema file against each configured database, creating tables and adding columns and indexes as needed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

var archiveCmd = &cobra.Command{
	Use:   "archive [name]",
	Short: "Archive tables to a standalone file",
	Long:  `Dump table schemas and rows into a self-contained SQLite archive file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runArchive,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite, mysql, or postgres (default: $MODELSTORE_DRIVER or sqlite)")
	rootCmd.PersistentFlags().StringSliceVar(&dsns, "dsn", nil, "Database DSN; repeatable for multiple targets (default: $MODELSTORE_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	archiveCmd.Flags().StringSliceVar(&tables, "tables", nil, "Tables to archive (default: all tables)")
	archiveCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows per table (default: unlimited)")
	archiveCmd.Flags().StringVar(&outputDir, "output-dir", "./archives", "Output directory for archives")

	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(archiveCmd)
}

// config is the resolved connection configuration: flags first, then
// environment.
type config struct {
	driver string
	dsns   []string
}

func loadConfig() (config, error) {
	cfg := config{driver: driver, dsns: dsns}
	if cfg.driver == "" {
		cfg.driver = os.Getenv("MODELSTORE_DRIVER")
	}
	if cfg.driver == "" {
		cfg.driver = "sqlite"
	}
	if len(cfg.dsns) == 0 {
		if dsn := os.Getenv("MODELSTORE_DSN"); dsn != "" {
			cfg.dsns = []string{dsn}
		}
	}
	if len(cfg.dsns) == 0 {
		return config{}, fmt.Errorf("no database configured: pass --dsn or set MODELSTORE_DSN")
	}
	return cfg, nil
}

func openTarget(cfg config, dsn string) (*modelstore.DB, error) {
	opts := []modelstore.Option{modelstore.WithLogger(newLogger())}
	if cfg.driver == "sqlite" {
		return modelstore.Open(dsn, opts...)
	}
	return modelstore.OpenDSN(cfg.driver, dsn, opts...)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dsn := range cfg.dsns {
		db, err := openTarget(cfg, dsn)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", dsn, err)
		}

		names, err := db.ListTablesSync()
		db.Close()
		if err != nil {
			return fmt.Errorf("failed to list tables on %s: %w", dsn, err)
		}

		if len(cfg.dsns) > 1 {
			fmt.Printf("%s:\n", dsn)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	}

	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openTarget(cfg, cfg.dsns[0])
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	state, err := db.InspectSync(args[0])
	if err != nil {
		return fmt.Errorf("failed to inspect table: %w", err)
	}
	if state == nil {
		return fmt.Errorf("table %s does not exist", args[0])
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	descs, err := schemafile.Load(args[0])
	if err != nil {
		return err
	}

	// Each target migrates independently and concurrently.
	var g errgroup.Group
	for _, dsn := range cfg.dsns {
		dsn := dsn
		g.Go(func() error {
			if err := migrateTarget(cfg, dsn, descs); err != nil {
				return fmt.Errorf("%s: %w", dsn, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Migrated %d table(s) on %d database(s)\n", len(descs), len(cfg.dsns))
	return nil
}

func migrateTarget(cfg config, dsn string, descs []*schema.Descriptor) error {
	db, err := openTarget(cfg, dsn)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer db.Close()

	for _, desc := range descs {
		if err := db.ResolveSync(desc); err != nil {
			return fmt.Errorf("table %s: %w", desc.Table, err)
		}
	}
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openTarget(cfg, cfg.dsns[0])
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var filename string
	if len(args) > 0 {
		filename = args[0]
		if !strings.HasSuffix(filename, ".db") {
			filename += ".db"
		}
	} else {
		filename = fmt.Sprintf("archive-%s.db", time.Now().Format("2006-01-02-15-04-05"))
	}
	outputPath := filepath.Join(outputDir, filename)

	fmt.Printf("Creating archive: %s\n", outputPath)
	if err := db.ArchiveSync(outputPath, tables, limit); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	fmt.Printf("Archive created successfully: %s\n", outputPath)
	return nil
}
