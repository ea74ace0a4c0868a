package epd

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	OpCodeAnalysisCountDepth  = "acd"
	OpCodeAnalysisCountNodes  = "acn"
	OpCodeBestMove            = "bm"
	OpCodeCentipawnEvaluation = "ce"
	OpCodeDirectMate          = "dm"
	OpCodeIdentifier          = "id"
)

// LineItem is one EPD record: the first four FEN fields followed by
// operations.
type LineItem struct {
	FEN string
	Ops []Operation
}

type Operation struct {
	OpCode string
	Value  string
}

// Key returns the first four fields of a FEN or EPD string, dropping move
// clocks and operations.
func Key(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return ""
	}
	return strings.Join(fields[:4], " ")
}

// NewLineItem returns a record for fen. Move clocks are dropped.
func NewLineItem(fen string, ops ...Operation) *LineItem {
	return &LineItem{FEN: Key(fen), Ops: ops}
}

func (line *LineItem) String() string {
	var sb strings.Builder
	sb.WriteString(line.FEN)
	for _, op := range line.Ops {
		sb.WriteByte(' ')
		sb.WriteString(op.OpCode)
		if op.Value != "" {
			sb.WriteByte(' ')
			sb.WriteString(op.Value)
		}
		sb.WriteByte(';')
	}

	return sb.String()
}

func (line *LineItem) BestMove() string {
	return line.GetString(OpCodeBestMove)
}

// ID returns the 'id' operand without its quotes.
func (line *LineItem) ID() string {
	return strings.Trim(line.GetString(OpCodeIdentifier), `"`)
}

func (line *LineItem) GetString(opCode string) string {
	for _, op := range line.Ops {
		if op.OpCode == opCode {
			return op.Value
		}
	}
	return ""
}

func (line *LineItem) SetInt(opCode string, value int) {
	line.SetString(opCode, strconv.Itoa(value))
}

func (line *LineItem) SetString(opCode, value string) {
	for i, op := range line.Ops {
		if op.OpCode == opCode {
			line.Ops[i].Value = value
			return
		}
	}

	line.Ops = append(line.Ops, Operation{OpCode: opCode, Value: value})
}

// SetQuoted sets a string operand, quoting it and dropping embedded quotes.
func (line *LineItem) SetQuoted(opCode, value string) {
	line.SetString(opCode, strconv.Quote(strings.ReplaceAll(value, `"`, "")))
}

// ParseLine parses an EPD record. A plain FEN with move clocks is accepted;
// the clocks are dropped.
func ParseLine(text string) (*LineItem, error) {
	text = strings.TrimSpace(text)

	var (
		spaces int
		rest   string
	)

	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			spaces++
			if spaces == 4 {
				rest = text[i+1:]
				text = text[:i]
				break
			}
		}
	}

	if spaces < 3 {
		return nil, fmt.Errorf("epd '%s': expected at least 4 fields", text)
	}

	line := &LineItem{FEN: text}

	// full FEN: two numeric move clocks before any operation
	if fields := strings.Fields(rest); len(fields) >= 2 && isNumber(fields[0]) && isNumber(fields[1]) {
		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), fields[0]))
		rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
	}

	for _, section := range splitOps(rest) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		parts := strings.SplitN(section, " ", 2)
		op := Operation{OpCode: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			op.Value = strings.TrimSpace(parts[1])
		}
		line.Ops = append(line.Ops, op)
	}

	return line, nil
}

// splitOps splits on ';' outside of quoted operands.
func splitOps(s string) []string {
	var (
		ops    []string
		quoted bool
		start  int
	)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				ops = append(ops, s[start:i])
				start = i + 1
			}
		}
	}

	if start < len(s) {
		ops = append(ops, s[start:])
	}

	return ops
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
