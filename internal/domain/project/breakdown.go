package project

import "github.com/rpggio/appcatalog/internal/domain/classify"

const unset = "none"

// Breakdown is a data-quality view over the catalog.
type Breakdown struct {
	Total       int            `json:"total"`
	ByFramework map[string]int `json:"by_framework"`
	ByDatabase  map[string]int `json:"by_database"`
	ByLanguage  map[string]int `json:"by_language"`
	ByCategory  map[string]int `json:"by_category"`
}

// NewBreakdown counts records. Records without a snapshot count as "none"
// for framework and database.
func NewBreakdown(records []Record, snapshots map[string]classify.Snapshot) Breakdown {
	b := Breakdown{
		Total:       len(records),
		ByFramework: map[string]int{},
		ByDatabase:  map[string]int{},
		ByLanguage:  map[string]int{},
		ByCategory:  map[string]int{},
	}
	for _, rec := range records {
		snap := snapshots[rec.ID]
		b.ByFramework[orUnset(snap.Frontend)]++
		b.ByDatabase[orUnset(snap.Database)]++
		b.ByLanguage[orUnset(rec.Language)]++
		b.ByCategory[orUnset(rec.Category)]++
	}
	return b
}

func orUnset(s string) string {
	if s == "" {
		return unset
	}
	return s
}
