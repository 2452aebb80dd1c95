package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cosim/cosim/hwmodel"
)

var mnemonics = map[string]hwmodel.Opcode{
	"nop":    hwmodel.OpNop,
	"log":    hwmodel.OpLog,
	"except": hwmodel.OpExcept,
}

// A schedule is the program the kernel runs.
type schedule struct {
	words  []uint64
	numLog int
}

// parseSchedule reads one instruction per line. An instruction is a mnemonic
// with an optional operand, or "word" followed by a raw 64-bit value. Text
// after '#' is ignored.
func parseSchedule(r io.Reader) (schedule, error) {
	var s schedule

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		word, err := parseInstruction(fields)
		if err != nil {
			return s, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if hwmodel.Opcode(word>>56) == hwmodel.OpLog {
			s.numLog++
		}

		s.words = append(s.words, word)
	}

	return s, scanner.Err()
}

func parseInstruction(fields []string) (uint64, error) {
	if len(fields) > 2 {
		return 0, fmt.Errorf("too many operands in %q",
			strings.Join(fields, " "))
	}

	var operand uint64

	if len(fields) == 2 {
		v, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid operand %q", fields[1])
		}

		operand = v
	}

	name := strings.ToLower(fields[0])
	if name == "word" {
		return operand, nil
	}

	op, ok := mnemonics[name]
	if !ok {
		return 0, fmt.Errorf("unknown instruction %q", fields[0])
	}

	if operand >= 1<<56 {
		return 0, fmt.Errorf("operand 0x%x does not fit", operand)
	}

	return hwmodel.Encode(op, operand), nil
}
