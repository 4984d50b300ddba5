// Command catalog-check builds the fitment index from the database and
// reports data integrity problems. It exits 1 when any are found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/introcar/introcar-backend/internal/fitment"
	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/db"
	"github.com/introcar/introcar-backend/pkg/logger"
)

func main() {
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "catalog-check", Output: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(2)
	}
	logg = logger.New(logger.Options{
		ServiceName: "catalog-check",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	report, err := check(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "catalog check failed", err)
		os.Exit(2)
	}

	if *asJSON {
		err = json.NewEncoder(os.Stdout).Encode(report)
	} else {
		err = printReport(os.Stdout, report)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to print report", err)
		os.Exit(2)
	}
	if len(report.Issues) > 0 {
		os.Exit(1)
	}
}

func check(ctx context.Context, cfg *config.Config, logg *logger.Logger) (fitment.Report, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fitment.Report{}, err
	}
	defer dbClient.Close()

	vehicleRepo, err := vehicles.NewRepository(dbClient.DB())
	if err != nil {
		return fitment.Report{}, err
	}
	fitmentRepo, err := fitment.NewRepository(dbClient.DB())
	if err != nil {
		return fitment.Report{}, err
	}
	supersessionRepo, err := supersession.NewRepository(dbClient.DB())
	if err != nil {
		return fitment.Report{}, err
	}
	loader, err := fitment.NewStoreLoader(vehicleRepo, fitmentRepo, supersessionRepo)
	if err != nil {
		return fitment.Report{}, err
	}

	// no deadline: an offline check may walk the whole data set
	holder, err := fitment.NewHolder(fitment.HolderConfig{
		Loader: loader,
		Options: fitment.Options{
			SuggestionLimit:      cfg.Catalog.SuggestionLimit,
			SupersessionMaxDepth: cfg.Catalog.SupersessionMaxDepth,
		},
		Logger: logg,
	})
	if err != nil {
		return fitment.Report{}, err
	}
	return holder.Reload(ctx)
}

func printReport(w io.Writer, report fitment.Report) error {
	fmt.Fprintf(w, "records: %d (skipped %d)\nmodels: %d\nboundaries: %d\nsupersessions: %d\n",
		report.Records, report.Skipped, report.Models, report.Boundaries, report.Links)
	if len(report.Issues) == 0 {
		_, err := fmt.Fprintln(w, "no integrity issues")
		return err
	}

	issues := append([]fitment.Issue(nil), report.Issues...)
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Kind != issues[j].Kind {
			return issues[i].Kind < issues[j].Kind
		}
		return issues[i].SKU < issues[j].SKU
	})

	fmt.Fprintf(w, "\n%d integrity issues:\n", len(issues))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSKU\tVEHICLE\tDETAIL")
	for _, issue := range issues {
		vehicle := "-"
		if issue.Make != "" {
			vehicle = issue.Make + " " + issue.Model
		}
		sku := issue.SKU
		if sku == "" {
			sku = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", issue.Kind, sku, vehicle, issue.Detail)
	}
	return tw.Flush()
}
