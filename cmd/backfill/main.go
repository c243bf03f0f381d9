// Backfill recomputes the canonical filter state of every sieve: filter
// conditions, target path, follow count and the paired share link's target
// and entity. Run it once after schema or codec changes; day-to-day writes
// keep everything canonical on their own.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"sievehub/database"
	"sievehub/internal/config"
	"sievehub/internal/filter"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

type rowResult struct {
	sieveID string
	action  string
	detail  string
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	all := flag.Bool("all", false, "force-recompute even already-canonical sieves")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	sieveRepo := repository.NewSieveRepository(db)
	linkRepo := repository.NewShareLinkRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	sieves, err := sieveRepo.ListAll(ctx)
	if err != nil {
		log.Fatalf("could not list sieves: %v", err)
	}

	var results []rowResult
	scanned, updated, skipped := 0, 0, 0

	for _, sieve := range sieves {
		scanned++
		result, changed, err := reconcile(ctx, sieveRepo, linkRepo, sieve, *all, *dryRun)
		if err != nil {
			log.Fatalf("backfill failed on sieve %s: %v", sieve.ID, err)
		}
		results = append(results, result)
		if changed {
			updated++
		} else {
			skipped++
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIEVE\tACTION\tDETAIL")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.sieveID, r.action, r.detail)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "scanned\t%d\n", scanned)
	fmt.Fprintf(w, "updated\t%d\n", updated)
	fmt.Fprintf(w, "skipped\t%d\n", skipped)
	if *dryRun {
		fmt.Fprintln(w, "mode\tdry-run (nothing written)")
	}
	w.Flush()
}

func reconcile(
	ctx context.Context,
	sieves repository.SieveRepository,
	links repository.ShareLinkRepository,
	sieve models.Sieve,
	force, dryRun bool,
) (rowResult, bool, error) {
	canonical := filter.Normalize(sieve.FilterConditions)
	canonicalPath := canonical.TargetPath()

	followCount, err := sieves.FollowCount(ctx, sieve.ID)
	if err != nil {
		return rowResult{}, false, err
	}

	link, err := links.GetByID(ctx, sieve.ShareLinkID)
	if err != nil {
		return rowResult{}, false, err
	}

	pathDrift := canonicalPath != sieve.TargetPath
	countDrift := followCount != sieve.FollowCount
	linkDrift := link != nil && (link.TargetURL != canonicalPath || link.EntityID != sieve.ID)

	if !force && !pathDrift && !countDrift && !linkDrift {
		return rowResult{sieveID: sieve.ID, action: "skip", detail: "already canonical"}, false, nil
	}

	detail := ""
	if pathDrift {
		detail += fmt.Sprintf("path %q -> %q; ", sieve.TargetPath, canonicalPath)
	}
	if countDrift {
		detail += fmt.Sprintf("follow count %d -> %d; ", sieve.FollowCount, followCount)
	}
	if linkDrift {
		detail += "share link retargeted; "
	}
	if detail == "" {
		detail = "forced recompute"
	}
	result := rowResult{sieveID: sieve.ID, action: "update", detail: detail}

	if dryRun {
		result.action = "would-update"
		return result, true, nil
	}

	err = sieves.Update(ctx, sieve.ID, map[string]any{
		"filter_conditions": canonical,
		"target_path":       canonicalPath,
		"follow_count":      followCount,
	})
	if err != nil {
		return rowResult{}, false, err
	}
	if link != nil {
		err = links.Update(ctx, link.ID, map[string]any{
			"target_url": canonicalPath,
			"entity_id":  sieve.ID,
		})
		if err != nil {
			return rowResult{}, false, err
		}
	}
	return result, true, nil
}
