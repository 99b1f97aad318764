package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// FileName is the JSON log file inside paths.log_dir.
const FileName = "streamguide.log"

const pollInterval = 250 * time.Millisecond

// Record is one decoded log line.
type Record struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	Stage     string
	Fields    map[string]any
}

// Filter narrows records. Zero values match everything.
type Filter struct {
	RunID    string
	Stage    string
	MinLevel string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Match reports whether rec passes f.
func (f Filter) Match(rec Record) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Stage != "" && rec.Stage != f.Stage {
		return false
	}
	if f.MinLevel != "" {
		floor, ok := levelRank[strings.ToLower(f.MinLevel)]
		if ok && levelRank[rec.Level] < floor {
			return false
		}
	}
	return true
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// returned as a message-only record.
func Parse(line string) Record {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{Message: line}
	}
	rec := Record{Fields: make(map[string]any)}
	for key, value := range raw {
		s, _ := value.(string)
		switch key {
		case "ts":
			rec.Time = s
		case "level":
			rec.Level = strings.ToLower(s)
		case "msg":
			rec.Message = s
		case "component":
			rec.Component = s
		case "run_id":
			rec.RunID = s
		case "stage":
			rec.Stage = s
		default:
			rec.Fields[key] = value
		}
	}
	return rec
}

// Format renders rec as a single console line with fields sorted by key.
func Format(rec Record) string {
	var b strings.Builder
	if rec.Time != "" {
		b.WriteString(rec.Time)
		b.WriteByte(' ')
	}
	if rec.Level != "" {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(rec.Level))
	}
	if rec.Component != "" {
		fmt.Fprintf(&b, "[%s] ", rec.Component)
	}
	b.WriteString(rec.Message)
	if rec.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", rec.Stage)
	}
	keys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, rec.Fields[key])
	}
	return b.String()
}

// Tail returns up to limit matching records from the end of the file and the
// offset just past the last byte read. limit <= 0 returns every match. A
// missing file yields no records and offset zero.
func Tail(path string, limit int, filter Filter) ([]Record, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []Record
	idx, count := 0, 0
	if limit > 0 {
		ring = make([]Record, limit)
	}
	var all []Record
	err = scanLines(file, func(line string) {
		rec := Parse(line)
		if !filter.Match(rec) {
			return
		}
		if limit <= 0 {
			all = append(all, rec)
			return
		}
		ring[idx] = rec
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	if limit <= 0 {
		return all, offset, nil
	}

	records := make([]Record, count)
	if count == limit {
		for i := range count {
			records[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(records, ring[:count])
	}
	return records, offset, nil
}

// Follow polls path from offset, calling fn for each new matching record,
// until ctx ends. A file that shrinks (rotation) is reread from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, fn func(Record)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		next, err := readFrom(path, offset, filter, fn)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, fn func(Record)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	err = scanLines(file, func(line string) {
		if rec := Parse(line); filter.Match(rec) {
			fn(rec)
		}
	})
	if err != nil {
		return offset, err
	}
	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return offset, fmt.Errorf("determine log offset: %w", err)
	}
	return next, nil
}

func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return nil
}
