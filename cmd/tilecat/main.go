// Command tilecat is a debug CLI that inspects one dataset's pyramid
// levels and chunk layout, the catalog/grid-processor analogue of the
// teacher's coginfo tool for a single GeoTIFF.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weatherwx/tileserve/internal/catalog"
)

var (
	dbURL        string
	level        string
	latest       bool
	forecastHour int
)

func main() {
	var model, parameter string

	rootCmd := &cobra.Command{
		Use:   "tilecat <model> <parameter>",
		Short: "Print a dataset's pyramid levels and chunk layout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, parameter = args[0], args[1]
			return run(model, parameter)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL (defaults to CATALOG_DATABASE_URL env)")
	rootCmd.Flags().StringVar(&level, "level", "", "Dataset level, e.g. \"2 m above ground\"")
	rootCmd.Flags().BoolVar(&latest, "latest", true, "Use the most recent reference time")
	rootCmd.Flags().IntVar(&forecastHour, "forecast-hour", 0, "Forecast hour (ignored when --latest)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(model, parameter string) error {
	if dbURL == "" {
		dbURL = os.Getenv("CATALOG_DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("CATALOG_DATABASE_URL is required (or pass --db)")
	}

	ctx := context.Background()
	cat, err := catalog.NewPGClient(ctx, catalog.PGConfig{DatabaseURL: dbURL}, nil, nil)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer cat.Close()

	rec, ok, err := cat.FindDataset(catalog.Query{
		Model: model, Parameter: parameter, Level: level,
		Latest: latest, ForecastHour: forecastHour,
	})
	if err != nil {
		return fmt.Errorf("find dataset: %w", err)
	}
	if !ok {
		return fmt.Errorf("no dataset found for model=%q parameter=%q level=%q", model, parameter, level)
	}

	fmt.Printf("Model:            %s\n", rec.Model)
	fmt.Printf("Parameter:        %s\n", rec.Parameter)
	fmt.Printf("Level:            %s\n", rec.Level)
	fmt.Printf("Reference time:   %s\n", rec.ReferenceTime)
	fmt.Printf("Forecast hour:    %d\n", rec.ForecastHour)
	fmt.Printf("Valid time:       %s\n", rec.ValidTime())
	fmt.Printf("Storage path:     %s\n", rec.StoragePath)
	fmt.Printf("Grid shape:       %d x %d\n", rec.GridRows, rec.GridCols)
	fmt.Printf("BBox:             [%.4f, %.4f, %.4f, %.4f]\n", rec.BBox.MinLon, rec.BBox.MinLat, rec.BBox.MaxLon, rec.BBox.MaxLat)
	fmt.Printf("Uses 0-360 lon:   %v\n", rec.Uses360Longitude)
	fmt.Printf("Projection:       %s\n", rec.Projection)
	fmt.Printf("Requires full grid override: %s\n", formatOverride(rec.RequiresFullGrid))
	fmt.Printf("Pyramid levels:   %d\n", len(rec.Pyramid))
	for _, lvl := range rec.Pyramid {
		fmt.Printf("  level %d: %dx%d cells, %dx%d chunks, scale=(%.6f, %.6f)\n",
			lvl.LevelIndex, lvl.Rows, lvl.Cols, lvl.ChunkRows, lvl.ChunkCols, lvl.ScaleX, lvl.ScaleY)
	}
	return nil
}

func formatOverride(b *bool) string {
	if b == nil {
		return "unset"
	}
	return fmt.Sprintf("%v", *b)
}
