package service

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

// ImportWarning reports an item listed more than once in an order list.
type ImportWarning struct {
	Item      string
	Line      int
	FirstLine int
}

func (w ImportWarning) String() string {
	return fmt.Sprintf("item %q more than once in item list at line %d (first at line %d)", w.Item, w.Line, w.FirstLine)
}

// ParseOrderList reads one item name per line. Numbered positions start at 1;
// a line of only '=' characters makes every following item unordered.
// A repeated name keeps its first position and produces a warning.
func ParseOrderList(r io.Reader) ([]domain.OrderEntry, []ImportWarning, error) {
	var (
		entries   []domain.OrderEntry
		warnings  []ImportWarning
		firstSeen = make(map[string]int)
		position  = 0
		unordered = false
		lineNo    = 0
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.Trim(scanner.Text(), "\r\n\t ")
		if line == "" {
			continue
		}

		if strings.Trim(line, "=") == "" {
			unordered = true
			continue
		}

		name := norm.NFC.String(line)
		if first, ok := firstSeen[name]; ok {
			warnings = append(warnings, ImportWarning{Item: name, Line: lineNo, FirstLine: first})
			continue
		}
		firstSeen[name] = lineNo

		entry := domain.OrderEntry{Description: name, Position: domain.UnorderedPosition}
		if !unordered {
			position++
			entry.Position = position
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read item list: %w", err)
	}
	return entries, warnings, nil
}
