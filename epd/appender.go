package epd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Appender writes records to the end of a file, one complete line per
// call. The file is opened, written and synced on every Append so a crash
// never leaves a partial line behind.
type Appender struct {
	Filename string

	// Last is the final record of the file found by LoadExisting.
	Last *LineItem

	// Skipped counts lines not written because LoadExisting found them.
	Skipped int

	existing map[string]struct{}
}

func NewAppender(filename string) *Appender {
	return &Appender{Filename: filename}
}

// Truncate empties the file, creating it if needed, and forgets anything
// LoadExisting found.
func (a *Appender) Truncate() error {
	if err := os.WriteFile(a.Filename, nil, 0644); err != nil {
		return fmt.Errorf("truncate '%s': %w", a.Filename, err)
	}
	a.existing = nil
	a.Last = nil
	return nil
}

// LoadExisting parses the records already in the file so that a resumed run
// does not write those positions again. Positions written by this Appender
// are never skipped. It returns the number of records found.
func (a *Appender) LoadExisting() (int, error) {
	a.existing = map[string]struct{}{}
	a.Last = nil

	fp, err := os.Open(a.Filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open '%s': %w", a.Filename, err)
	}
	defer fp.Close()

	var (
		n       int
		lineNum int
	)

	scanner := bufio.NewScanner(fp)
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		item, err := ParseLine(text)
		if err != nil {
			return 0, fmt.Errorf("'%s' line %d: %w", a.Filename, lineNum, err)
		}

		a.existing[item.FEN] = struct{}{}
		a.Last = item
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read '%s': %w", a.Filename, err)
	}

	return n, nil
}

// Append writes line followed by a newline. A line for a position that
// LoadExisting found is skipped.
func (a *Appender) Append(line string) error {
	line = strings.TrimRight(line, "\r\n")

	if _, ok := a.existing[Key(line)]; ok {
		a.Skipped++
		return nil
	}

	fp, err := os.OpenFile(a.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open '%s': %w", a.Filename, err)
	}

	if _, err := fp.WriteString(line + "\n"); err != nil {
		_ = fp.Close()
		return fmt.Errorf("write '%s': %w", a.Filename, err)
	}

	if err := fp.Sync(); err != nil {
		_ = fp.Close()
		return fmt.Errorf("sync '%s': %w", a.Filename, err)
	}

	if err := fp.Close(); err != nil {
		return fmt.Errorf("close '%s': %w", a.Filename, err)
	}

	return nil
}
