package extract

import (
	"strconv"
	"strings"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
)

// tableauEntry matches one inscribed person: an upper-case surname
// followed by the given name in parentheses, with an optional
// civility. Placeholder entries ("Néant") match too and are dropped
// through the ignore list.
var tableauEntry = MustPattern(
	`(?m)^(?:M\. |Mme |Mlle )?(?P<full_name>[A-ZÀ-Þ][A-ZÀ-Þ' \-]+ \([^)\n]+\)|Néant)\s*$`,
	nil,
	map[string][]string{"full_name": {"Néant"}},
)

// tableauPatterns are tried in order; the first one that matches a
// text wins. Both variants cover the arrêté phrasings observed in the
// JORF: promotion by access to a grade, and plain promotion to a
// grade.
var tableauPatterns = []*Pattern{
	MustPattern(
		`(?s)\A.*?sont inscrit(?:e?s)? au tableau d'avancement pour l'accès au grade (?:de la |de |d'|du )`+
			`(?P<grade>[^,:\n]+?)`+
			`(?: du corps (?:des |de la |de l'|du )(?P<corps>[^,:\n]+?))?`+
			`, au titre de l'année (?P<year>\d{4})\s*:.*`,
		tableauEntry,
		nil,
	),
	MustPattern(
		`(?s)\A.*?sont inscrit(?:e?s)? au tableau d'avancement au grade (?:de la |de |d'|du )`+
			`(?P<grade>[^,:\n]+?)`+
			`(?: du corps (?:des |de la |de l'|du )(?P<corps>[^,:\n]+?))?`+
			`, au titre de l'année (?P<year>\d{4})\s*:.*`,
		tableauEntry,
		nil,
	),
}

// Extractor selects a pattern list by job kind and runs it against
// normalized content.
type Extractor struct {
	patterns map[domain.Kind][]*Pattern
}

// New builds an Extractor knowing every supported job kind.
func New() *Extractor {
	return &Extractor{
		patterns: map[domain.Kind][]*Pattern{
			domain.KindTableauAvancement: tableauPatterns,
		},
	}
}

// Extract parses content for the given kind. ok is false when no
// pattern matched; an empty record list with ok true means every
// entry was filtered as ignorable. TextID is left blank: the caller
// owns the mapping from content to catalog id.
func (e *Extractor) Extract(content string, kind domain.Kind) ([]domain.Record, bool) {
	text := Normalize(content)
	for _, p := range e.patterns[kind] {
		rows, ok := p.Match(text)
		if !ok {
			continue
		}
		records := make([]domain.Record, 0, len(rows))
		for _, row := range rows {
			year, _ := strconv.Atoi(row["year"])
			records = append(records, domain.Record{
				Corps:    strings.TrimSpace(row["corps"]),
				Grade:    strings.TrimSpace(row["grade"]),
				FullName: strings.TrimSpace(row["full_name"]),
				Year:     year,
			})
		}
		return records, true
	}
	return nil, false
}
