package scraper

import (
	"html"
	"regexp"
	"strings"
)

// headerMarker is the css class the market puts on table header rows.
const headerMarker = "list00"

// listing tables have exactly eight cells per row
const rowCells = 8

var (
	tagRe  = regexp.MustCompile(`</?\w+[^>]*>`)
	rowRe  = regexp.MustCompile(`(?i)<tr[^>]*>\s*(?:<td[^>]*>.*?</td>\s*){8}`)
	cellRe = regexp.MustCompile(`(?i)<td[^>]*>\s*(.*?)\s*</td>`)
)

// Row is a listing row cut out of a market page.
type Row struct {
	Record RawRecord
	// Payload is the raw html of the row, kept for logging.
	Payload string
}

// ParseRows cuts every listing row out of a market page. Header rows are
// skipped; rows whose cells cannot be read are returned as malformed payloads.
func ParseRows(page string) ([]Row, []string) {
	var rows []Row
	var malformed []string

	for _, payload := range rowRe.FindAllString(page, -1) {
		if strings.Contains(payload, headerMarker) {
			continue
		}

		cells := cellRe.FindAllStringSubmatch(payload, -1)
		if len(cells) != rowCells {
			malformed = append(malformed, payload)
			continue
		}

		// cells 4 and 6 carry nothing we use
		rows = append(rows, Row{
			Record: RawRecord{
				Date:      cells[0][1],
				OwnerCity: cells[1][1],
				ItemTag:   cells[2][1],
				ItemName:  cells[3][1],
				Count:     cells[5][1],
				Cost:      cells[7][1],
			},
			Payload: payload,
		})
	}

	return rows, malformed
}

// TagSplit splits text on html tags and returns the non-empty, cleaned pieces.
//
//	"Gremlin *<br/>Giran" -> ["Gremlin *", "Giran"]
func TagSplit(text string) []string {
	var parts []string
	for _, p := range tagRe.Split(text, -1) {
		if p = CleanText(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// CleanText unescapes html entities and collapses whitespace.
func CleanText(text string) string {
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
