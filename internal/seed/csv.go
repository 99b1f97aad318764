package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one curated CSV row.
type Entry struct {
	Line   int
	Title  string
	IMDBID string
	Year   int
	TMDBID int64
}

var headerAliases = map[string]string{
	"title":   "title",
	"imdbid":  "imdb",
	"imdb_id": "imdb",
	"year":    "year",
	"tmdbid":  "tmdb",
	"tmdb_id": "tmdb",
}

// ParseCSV reads curated rows from r. The header row is required and must
// name a title column; unknown columns are ignored. Rows without a title are
// returned in invalid by line number.
func ParseCSV(r io.Reader) (entries []Entry, invalid []int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("csv header row missing")
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := headerAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = idx
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, nil, errors.New("csv header has no title column")
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return entries, invalid, fmt.Errorf("read csv: %w", readErr)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		entry := Entry{
			Line:   line,
			Title:  field(record, "title"),
			IMDBID: field(record, "imdb"),
		}
		if entry.Title == "" {
			invalid = append(invalid, line)
			continue
		}
		if year, convErr := strconv.Atoi(field(record, "year")); convErr == nil && year > 0 {
			entry.Year = year
		}
		if id, convErr := strconv.ParseInt(field(record, "tmdb"), 10, 64); convErr == nil && id > 0 {
			entry.TMDBID = id
		}
		entries = append(entries, entry)
	}
	return entries, invalid, nil
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
