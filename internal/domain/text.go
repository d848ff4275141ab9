package domain

import "time"

// Kind selects the extraction patterns a text is matched against.
type Kind string

// KindTableauAvancement covers arrêtés publishing promotion tables.
const KindTableauAvancement Kind = "tableau_avancement"

// SearchQuery describes one Légifrance listing criterion.
type SearchQuery struct {
	Fond     string   `yaml:"fond"`
	Natures  []string `yaml:"natures"`
	Keywords string   `yaml:"keywords"`
}

// Job is one listing criterion submitted for processing. It lives from
// submission until the coordinator confirms full drain.
type Job struct {
	Name  string      `yaml:"name"`
	Kind  Kind        `yaml:"kind"`
	Query SearchQuery `yaml:"query"`
}

// Text is one document fetched from the catalog. HasContent is false
// when the upstream payload was structurally incomplete; such texts
// are recorded as failures instead of being extracted.
type Text struct {
	ID          string
	PublishedAt time.Time
	Content     string
	HasContent  bool
}

// Record is one structured entry extracted from a text: one person
// inscribed on a promotion table.
type Record struct {
	TextID   string
	Corps    string
	Grade    string
	FullName string
	Year     int
}

// Outcome is the terminal extraction result for one text. Failed
// outcomes end up in the failed-texts table, successful ones in the
// texts and records tables.
type Outcome struct {
	ID          string
	PublishedAt time.Time
	Records     []Record
	Failed      bool
}

// Accepted is the bookkeeping row written for a successfully
// extracted text.
type Accepted struct {
	ID          string
	PublishedAt time.Time
}

// PersistBatch groups everything one Persist call writes in a single
// transaction.
type PersistBatch struct {
	Failed   []string
	Accepted []Accepted
	Records  []Record
}
