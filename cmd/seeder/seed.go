package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// seedEntry is one line of a seed file
type seedEntry struct {
	Line          int
	URL           string
	Justification string
}

var (
	markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\(([^\)]+)\)`)
	angleBracketRegex = regexp.MustCompile(`^<([^>]+)>$`)
)

// parseSeedFile reads "url | justification" lines. Blank lines and lines
// starting with # are skipped. A line without a separator uses the
// fallback justification.
func parseSeedFile(r io.Reader, fallback string) ([]seedEntry, error) {
	var entries []seedEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rawURL, justification, found := strings.Cut(line, "|")
		if !found {
			justification = fallback
		}

		url := cleanURL(rawURL)
		if url == "" {
			return nil, fmt.Errorf("line %d: missing url", lineNo)
		}

		entries = append(entries, seedEntry{
			Line:          lineNo,
			URL:           url,
			Justification: strings.TrimSpace(justification),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return entries, nil
}

// cleanURL strips the formatting that pasted links tend to carry:
// markdown links, angle brackets and invisible characters
func cleanURL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = markdownLinkRegex.ReplaceAllString(cleaned, "$2")
	cleaned = angleBracketRegex.ReplaceAllString(cleaned, "$1")

	// U+200B, U+200C, U+200D and the BOM
	for _, invisible := range []string{"\u200B", "\u200C", "\u200D", "\uFEFF"} {
		cleaned = strings.ReplaceAll(cleaned, invisible, "")
	}
	return strings.TrimSpace(cleaned)
}
