package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"darkroom/internal/ipc"
)

func buildOutcomeStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatResultLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildOutcomeRows(records []ipc.OutcomeRecord, withRun bool) [][]string {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := []string{
			formatDisplayTime(record.Timestamp),
			formatOutcomeFile(record.Path),
			formatResultLabel(record.Result),
			formatReason(record.Reason),
		}
		if withRun {
			row = append(row, formatRunID(record.RunID))
		}
		rows = append(rows, row)
	}
	return rows
}

func formatResultLabel(result string) string {
	result = strings.TrimSpace(result)
	if result == "" {
		return ""
	}
	parts := strings.Split(result, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return value
}

func formatOutcomeFile(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}

func formatReason(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 60 {
		return value[:57] + "..."
	}
	return value
}

func formatRunID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 8 {
		return value[:8]
	}
	return value
}
