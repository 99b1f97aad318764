package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"streamguide/internal/catalog"
	"streamguide/internal/quota"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// providerStatus is the budget state of one provider at status time.
type providerStatus struct {
	Name       string       `json:"name"`
	Configured bool         `json:"configured"`
	Today      int          `json:"calls_today"`
	Budget     quota.Budget `json:"-"`
	Usage      string       `json:"usage"`
}

func providerLines(providers []providerStatus, colorize bool) []string {
	lines := make([]string, 0, len(providers))
	for _, p := range providers {
		var (
			kind   statusKind
			detail string
		)
		switch {
		case !p.Configured:
			kind, detail = statusWarn, "api key not set; pass skipped"
		case p.Budget.Exhausted():
			kind, detail = statusWarn, "budget exhausted ("+p.Budget.String()+")"
		case len(p.Budget.Windows) == 0:
			kind, detail = statusOK, fmt.Sprintf("%d calls today", p.Today)
		default:
			kind, detail = statusOK, p.Budget.String()
		}
		lines = append(lines, renderStatusLine(p.Name, kind, detail, colorize))
	}
	return lines
}

func renderCatalogTable(stats catalog.Stats) string {
	rows := [][]string{
		{"Titles", strconv.Itoa(stats.Shows)},
		{"Featured", strconv.Itoa(stats.Featured)},
		{"Featured without metadata", strconv.Itoa(stats.MissingMetadata)},
		{"Availability rows", strconv.Itoa(stats.Availability)},
		{"Rows with direct link", strconv.Itoa(stats.WithURL)},
		{"Verified links", strconv.Itoa(stats.Verified)},
		{"Dead links", strconv.Itoa(stats.Dead)},
	}
	statuses := make([]string, 0, len(stats.EnrichStatus))
	for status := range stats.EnrichStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		rows = append(rows, []string{"Enrichment " + status, strconv.Itoa(stats.EnrichStatus[catalog.EnrichStatus(status)])})
	}
	return renderTable("", []string{"Catalog", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
