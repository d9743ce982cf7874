package events

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// timestampFormats are tried in order when a CSV row carries a date column
// instead of separate year and month columns.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"02/01/2006",
	"2006",
}

// LoadFile reads events from path, choosing the decoder by extension.
// Events without an id are given a generated one.
func LoadFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening events file: %w", err)
	}
	defer file.Close()

	var list []Event
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		list, err = ParseCSV(file)
	case ".yaml", ".yml":
		list, err = ParseYAML(file)
	case ".json":
		list, err = ParseJSON(file)
	default:
		return nil, fmt.Errorf("unsupported events file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ParseYAML decodes a YAML list of events.
func ParseYAML(r io.Reader) ([]Event, error) {
	var list []Event
	if err := yaml.NewDecoder(r).Decode(&list); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error parsing YAML events: %w", err)
	}
	return Normalize(list)
}

// ParseJSON decodes a JSON array of events.
func ParseJSON(r io.Reader) ([]Event, error) {
	var list []Event
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("error parsing JSON events: %w", err)
	}
	return Normalize(list)
}

// ParseCSV reads events from CSV. The header is matched case-insensitively;
// either a year column (with optional month) or a date column is required.
func ParseCSV(r io.Reader) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	columnMap := make(map[string]int)
	for i, col := range header {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	_, hasYear := columnMap["year"]
	_, hasDate := columnMap["date"]
	if !hasYear && !hasDate {
		return nil, fmt.Errorf("CSV needs a 'year' or 'date' column. Available columns: %v", header)
	}

	var list []Event
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line++

		event, err := parseRow(record, columnMap)
		if err != nil {
			return nil, fmt.Errorf("error parsing CSV row %d: %w", line, err)
		}
		list = append(list, event)
	}

	return Normalize(list)
}

func parseRow(record []string, columnMap map[string]int) (Event, error) {
	field := func(name string) string {
		if idx, ok := columnMap[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	event := Event{
		ID:    field("id"),
		Title: field("title"),
		Type:  Type(strings.ToLower(field("type"))),
	}
	if desc := field("description"); desc != "" {
		event.Description = Text(desc)
	}
	if hl := field("highlight"); hl != "" {
		for _, term := range strings.Split(hl, ";") {
			if term = strings.TrimSpace(term); term != "" {
				event.Highlight = append(event.Highlight, term)
			}
		}
	}

	if yearStr := field("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return Event{}, fmt.Errorf("%w: year %q", ErrInvalidEvent, yearStr)
		}
		event.Year = year
		if monthStr := field("month"); monthStr != "" {
			month, err := strconv.Atoi(monthStr)
			if err != nil {
				return Event{}, fmt.Errorf("%w: month %q", ErrInvalidEvent, monthStr)
			}
			event.Month = Month(month)
		}
		return event, nil
	}

	dateStr := field("date")
	for _, format := range timestampFormats {
		ts, err := time.Parse(format, dateStr)
		if err != nil {
			continue
		}
		event.Year = ts.Year()
		if format != "2006" {
			event.Month = Month(int(ts.Month()))
		}
		return event, nil
	}
	return Event{}, fmt.Errorf("%w: unable to parse date %q", ErrInvalidEvent, dateStr)
}

// Normalize assigns ids to events without one and validates the list.
// Generated ids are derived from the position in list and sort in that
// order, so events sharing a date keep their file order on every load.
func Normalize(list []Event) ([]Event, error) {
	width := max(4, len(strconv.Itoa(len(list))))
	for i := range list {
		if strings.TrimSpace(list[i].ID) == "" {
			list[i].ID = fmt.Sprintf("row-%0*d", width, i+1)
		}
	}
	if err := ValidateAll(list); err != nil {
		return nil, err
	}
	return list, nil
}
