package main

import (
	"context"
	"log"
	"time"

	"roomfinder/internal/services"
)

const (
	draftCleanerTimeout = 2 * time.Minute
	draftCleanerBatch   = 100
)

// startDraftCleaner removes abandoned listing drafts and their staged
// images on a fixed interval.
func startDraftCleaner(ctx context.Context, wizard *services.ListingWizard, interval time.Duration, infoLog, errorLog *log.Logger) {
	if wizard == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, draftCleanerTimeout)
			defer cancel()

			removed, err := wizard.PurgeExpired(runCtx, draftCleanerBatch)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("draft cleaner: failed to purge expired drafts: %v", err)
				}
				return
			}
			if removed > 0 && infoLog != nil {
				infoLog.Printf("draft cleaner: removed %d expired drafts", removed)
			}
		}

		run()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
