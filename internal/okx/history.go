package okx

import (
	"context"
	"log"
	"time"

	"kdj-monitor/internal/model"
)

const (
	historyPageLimit = 100
	historyMaxPages  = 1000
	historyPageDelay = 100 * time.Millisecond
)

// HistoryRange describes the window for a historical download. StartMs is
// inclusive; EndMs of zero means "up to now". Times are ms since epoch.
type HistoryRange struct {
	StartMs int64
	EndMs   int64
}

// History pages backwards through candle history for one instrument using a
// moving "after" cursor until the range start is covered. It also stops on an
// empty or short page, a cursor that fails to advance, or the page ceiling:
// at the edge of available history the provider repeats pages instead of
// returning nothing.
func (c *Client) History(ctx context.Context, instID, bar string, rng HistoryRange) ([]model.Candle, error) {
	var all []model.Candle
	var after int64 // "records older than this"; 0 starts at the newest page
	if rng.EndMs > 0 {
		after = rng.EndMs + 1
	}
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return model.SortCandles(all), err
		}

		page, err := c.candlesPage(ctx, instID, bar, historyPageLimit, after, 0)
		if err != nil {
			// Keep what was already downloaded.
			return model.SortCandles(all), err
		}
		if len(page) == 0 {
			break
		}
		pages++

		reachedStart := false
		for _, candle := range page {
			if rng.StartMs > 0 && candle.TS < rng.StartMs {
				reachedStart = true
				continue
			}
			all = append(all, candle)
		}
		if reachedStart {
			break
		}

		// page is ascending; the next request asks for rows older than the
		// oldest one seen.
		oldest := page[0].TS
		if after != 0 && oldest >= after {
			log.Printf("[okx] %s: pagination cursor stalled at %d, stopping", instID, oldest)
			break
		}
		after = oldest

		if len(page) < historyPageLimit {
			break // short page: end of available history
		}
		if pages >= historyMaxPages {
			log.Printf("[okx] %s: hit page ceiling (%d), stopping", instID, historyMaxPages)
			break
		}

		select {
		case <-ctx.Done():
			return model.SortCandles(all), ctx.Err()
		case <-time.After(historyPageDelay):
		}
	}

	return model.SortCandles(all), nil
}
