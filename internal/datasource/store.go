package datasource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// BuildDataset assembles a fresh dataset from backfilled records.
func BuildDataset(records []models.HistoricalRecord, currencies []models.Currency, from, to time.Time, current *models.HistoricalRecord, now time.Time) *models.Dataset {
	if current == nil && len(records) > 0 {
		last := records[len(records)-1]
		current = &last
	}
	return &models.Dataset{
		Metadata: models.DatasetMetadata{
			Base:        string(models.USD),
			Currencies:  currencyCodes(currencies),
			StartDate:   utils.FormatDate(from),
			EndDate:     utils.FormatDate(to),
			TotalDays:   len(records),
			LastUpdated: utils.FormatTimestamp(now),
		},
		Current:    current,
		Historical: records,
	}
}

// Upsert returns a new dataset with rec applied as today's entry: it
// replaces the newest record when the dates match and is appended
// otherwise. Metadata and the current record are refreshed. A nil ds
// starts a new dataset holding only rec. ds itself is not modified.
func Upsert(ds *models.Dataset, rec models.HistoricalRecord, currencies []models.Currency, now time.Time) (*models.Dataset, bool) {
	stamp := utils.FormatTimestamp(now)
	cur := rec

	if ds == nil {
		return &models.Dataset{
			Metadata: models.DatasetMetadata{
				BaseCurrency: string(models.USD),
				Currencies:   currencyCodes(currencies),
				TotalDays:    1,
				StartDate:    rec.Date,
				EndDate:      rec.Date,
				LastUpdated:  stamp,
			},
			Current:    &cur,
			Historical: []models.HistoricalRecord{rec},
		}, false
	}

	hist := make([]models.HistoricalRecord, len(ds.Historical), len(ds.Historical)+1)
	copy(hist, ds.Historical)

	replaced := len(hist) > 0 && hist[len(hist)-1].Date == rec.Date
	if replaced {
		hist[len(hist)-1] = rec
	} else {
		hist = append(hist, rec)
	}

	meta := ds.Metadata
	meta.TotalDays = len(hist)
	meta.EndDate = hist[len(hist)-1].Date
	meta.LastUpdated = stamp
	if meta.StartDate == "" {
		meta.StartDate = hist[0].Date
	}

	return &models.Dataset{Metadata: meta, Current: &cur, Historical: hist}, replaced
}

// Save writes ds as indented JSON, replacing path atomically.
func Save(path string, ds *models.Dataset) error {
	if ds == nil {
		return ErrEmptyDataset
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".historical-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

func currencyCodes(cs []models.Currency) []string {
	if len(cs) == 0 {
		cs = models.QuotedCurrencies
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
