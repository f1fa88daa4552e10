package models

// HistoricalRecord is one day of USD-quoted rates.
// USD itself is implicitly 1.0 and usually absent from Rates.
type HistoricalRecord struct {
	Date  string             `json:"date"` // YYYY-MM-DD
	Base  string             `json:"base,omitempty"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the USD-quoted rate for c and whether the record carries it.
func (r HistoricalRecord) Rate(c Currency) (float64, bool) {
	v, ok := r.Rates[string(c)]
	return v, ok
}

// HasAll reports whether the record carries every currency in cs.
func (r HistoricalRecord) HasAll(cs []Currency) bool {
	for _, c := range cs {
		if _, ok := r.Rates[string(c)]; !ok {
			return false
		}
	}
	return true
}

// DatasetMetadata describes a dataset file. Older files use "base_currency",
// newer ones "base"; both are kept.
type DatasetMetadata struct {
	Base         string   `json:"base,omitempty"`
	BaseCurrency string   `json:"base_currency,omitempty"`
	Currencies   []string `json:"currencies,omitempty"`
	TotalDays    int      `json:"total_days"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	LastUpdated  string   `json:"last_updated"`
}

// Dataset is the historical.json document. Historical is ordered oldest first
// and must not be mutated once the dataset has been handed out.
type Dataset struct {
	Metadata   DatasetMetadata    `json:"metadata"`
	Current    *HistoricalRecord  `json:"current,omitempty"`
	Historical []HistoricalRecord `json:"historical"`
}

// Len returns the number of historical records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Historical)
}

// Last returns the newest record, or nil for an empty dataset.
func (d *Dataset) Last() *HistoricalRecord {
	if d.Len() == 0 {
		return nil
	}
	return &d.Historical[len(d.Historical)-1]
}
