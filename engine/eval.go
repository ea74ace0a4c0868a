package engine

import (
	"fmt"
	"strconv"
	"strings"
)

type Evals []Eval

// Best returns the rank 1 line.
func (evals Evals) Best() (Eval, bool) {
	if len(evals) == 0 {
		return Eval{}, false
	}
	return evals[0], true
}

// Eval is one multipv line of engine output. CP and Mate are from the point
// of view of the side to move; Mate is 0 unless the score is a forced mate.
type Eval struct {
	UCIMove    string   `json:"uci"`
	Depth      int      `json:"depth"`
	SelDepth   int      `json:"seldepth"`
	MultiPV    int      `json:"multipv"`
	CP         int      `json:"cp"`
	Mate       int      `json:"mate"`
	Nodes      int      `json:"nodes"`
	NPS        int      `json:"nps"`
	TBHits     int      `json:"tbhits"`
	Time       int      `json:"time"`
	UpperBound bool     `json:"ub,omitempty"`
	LowerBound bool     `json:"lb,omitempty"`
	PV         []string `json:"pv"`
}

func (e Eval) Empty() bool {
	return e.UCIMove == ""
}

func (e Eval) IsMate() bool {
	return e.Mate != 0
}

func (e Eval) String() string {
	if e.Mate != 0 {
		return fmt.Sprintf("#%d", e.Mate)
	}

	s := fmt.Sprintf("%+.2f", float64(e.CP)/100)
	if s == "+0.00" || s == "-0.00" {
		return "0.00"
	}
	return s
}

// ParseInfo parses an "info ... score ... pv ..." line. Fields it does not
// know about are skipped.
func ParseInfo(line string) (Eval, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return Eval{}, fmt.Errorf("not an info line: '%s'", line)
	}

	var eval Eval

	intAt := func(i int) (int, error) {
		if i >= len(parts) {
			return 0, fmt.Errorf("'%s': missing value after '%s'", line, parts[i-1])
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("'%s': %w", line, err)
		}
		return n, nil
	}

	var err error

scoreLoop:
	for i := 1; i < len(parts); i++ {
		inc := 1
		switch parts[i] {
		case "depth":
			eval.Depth, err = intAt(i + 1)
		case "seldepth":
			eval.SelDepth, err = intAt(i + 1)
		case "multipv":
			eval.MultiPV, err = intAt(i + 1)
		case "score":
			if i+1 >= len(parts) {
				return Eval{}, fmt.Errorf("'%s': missing score type", line)
			}
			switch parts[i+1] {
			case "cp":
				eval.CP, err = intAt(i + 2)
			case "mate":
				eval.Mate, err = intAt(i + 2)
			default:
				return Eval{}, fmt.Errorf("'%s': unhandled score type '%s'", line, parts[i+1])
			}
			inc++
		case "upperbound":
			eval.UpperBound = true
			inc = 0
		case "lowerbound":
			eval.LowerBound = true
			inc = 0
		case "nodes":
			eval.Nodes, err = intAt(i + 1)
		case "nps":
			eval.NPS, err = intAt(i + 1)
		case "tbhits":
			eval.TBHits, err = intAt(i + 1)
		case "time":
			eval.Time, err = intAt(i + 1)
		case "wdl":
			inc = 3
		case "string":
			break scoreLoop
		case "pv":
			eval.PV = append([]string(nil), parts[i+1:]...)
			if len(eval.PV) != 0 {
				eval.UCIMove = eval.PV[0]
			}
			break scoreLoop
		default:
			// hashfull, currmove, refutation, ...
			inc = 0
		}

		if err != nil {
			return Eval{}, err
		}

		i += inc
	}

	return eval, nil
}

// showEngineOutput filters the per-move search progress lines out of trace logs.
func showEngineOutput(line string) bool {
	parts := strings.Split(line, " ")
	if len(parts) == 7 {
		if parts[0] == "info" && parts[1] == "depth" && parts[3] == "currmove" && parts[5] == "currmovenumber" {
			return false
		}
	}
	return true
}
