package timetable

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// trainPattern finds the train number inside decorated header text,
// e.g. "Train 401*" or "MARC Train #523 (Sat)"
var trainPattern = regexp.MustCompile(`(?i)train\s*#?\s*(\d+)`)

// footnotePattern matches parenthetical annotations such as "(a)" or "(Fri only)"
var footnotePattern = regexp.MustCompile(`\([^)]*\)`)

// noServiceMarkers are cell values meaning the train does not stop there
var noServiceMarkers = map[string]bool{
	"":   true,
	"--": true,
	"—":  true,
	"–":  true,
}

// Parse reads timetable markup for one line and direction and returns the
// stops of every train column, keyed by train number. A page without the
// expected table yields an empty mapping; the cause is logged.
func Parse(r io.Reader) map[string]Schedule {
	result := make(map[string]Schedule)

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		log.Printf("Timetable: failed to read markup: %v", err)
		return result
	}

	header, body := findRows(doc)
	if header == nil {
		log.Println("Timetable: no table with header and body rows found")
		return result
	}

	trains := parseHeader(header)
	if len(trains) == 0 {
		log.Println("Timetable: header row has no train columns")
		return result
	}

	// a train listed in several columns keeps only its last column
	lastCol := make(map[string]int, len(trains))
	for col, trainID := range trains {
		if prev, ok := lastCol[trainID]; ok {
			log.Printf("Timetable: Warning: train %s appears in columns %d and %d, keeping column %d", trainID, prev+1, col+1, col+1)
		}
		lastCol[trainID] = col
	}

	body.Each(func(rowIdx int, row *goquery.Selection) {
		cells := row.Children().Filter("th, td")
		if cells.Length() < 2 {
			return
		}

		station := cleanText(cells.First())
		if station == "" {
			log.Printf("Timetable: Warning: body row %d has no station name, skipping", rowIdx)
			return
		}

		cells.Slice(1, cells.Length()).Each(func(col int, cell *goquery.Selection) {
			if col >= len(trains) || lastCol[trains[col]] != col {
				return
			}
			scheduled := cleanTime(cell)
			if noServiceMarkers[scheduled] {
				return
			}
			trainID := trains[col]
			result[trainID] = append(result[trainID], Stop{Station: station, Scheduled: scheduled})
		})
	})

	return result
}

// findRows locates the timetable's header row and body rows. A table with a
// thead is preferred; otherwise the first table with at least two rows is
// used, taking its first row as the header. header is nil when neither exists.
func findRows(doc *goquery.Document) (header, body *goquery.Selection) {
	tables := doc.Find("table")

	withHead := tables.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("thead tr").Length() > 0 && s.Find("tbody tr").Length() > 0
	}).First()
	if withHead.Length() > 0 {
		return withHead.Find("thead tr").First(), withHead.Find("tbody tr")
	}

	plain := tables.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("tr").Length() >= 2
	}).First()
	if plain.Length() == 0 {
		return nil, nil
	}
	rows := plain.Find("tr")
	return rows.First(), rows.Slice(1, rows.Length())
}

// parseHeader returns the train identifier of every column after the station column
func parseHeader(header *goquery.Selection) []string {
	cells := header.Children().Filter("th, td")
	if cells.Length() < 2 {
		return nil
	}

	trains := make([]string, 0, cells.Length()-1)
	cells.Slice(1, cells.Length()).Each(func(col int, cell *goquery.Selection) {
		trains = append(trains, ExtractTrainID(cleanText(cell), col))
	})
	return trains
}

// ExtractTrainID finds "Train <number>" in header text. When absent it logs a
// warning and returns a placeholder derived from the column index.
func ExtractTrainID(text string, col int) string {
	if match := trainPattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	placeholder := fmt.Sprintf("unknown-%d", col+1)
	log.Printf("Timetable: Warning: no train number in header %q, using %s", strings.TrimSpace(text), placeholder)
	return placeholder
}

// cleanTime extracts a time cell's text with footnote markers removed
func cleanTime(cell *goquery.Selection) string {
	c := cell.Clone()
	c.Find("sup").Remove()
	text := footnotePattern.ReplaceAllString(c.Text(), "")
	text = strings.TrimRight(strings.TrimSpace(text), "*†‡")
	return collapseSpace(text)
}

func cleanText(cell *goquery.Selection) string {
	c := cell.Clone()
	c.Find("sup").Remove()
	return collapseSpace(c.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
