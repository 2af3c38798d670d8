// Package prompt implements the interactive operator decision provider. All
// prompts block until the operator answers; there is deliberately no timeout,
// so a failed transfer waits as long as the operator needs.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"tokendrip/internal/engine"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/model"
)

// Terminal reads operator decisions from an input stream, normally stdin.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// OnTransferFailure prompts for retry/skip/pause/abort after a failed
// transfer. Unrecognized input re-prompts; EOF aborts the run.
func (t *Terminal) OnTransferFailure(rec *model.DistributionRecord, index int, transferErr error, attempts int) engine.Decision {
	fmt.Fprintf(t.out, "\ntransfer %d to %s for %s failed (attempt %d): %v\n",
		index+1, rec.Address, fixedpoint.ToDecimalString(&rec.Amount.Int), attempts, transferErr)

	for {
		fmt.Fprint(t.out, "[r]etry, [s]kip, [p]ause, [a]bort? ")
		answer, err := t.readLine()
		if err != nil {
			return engine.DecisionAbort
		}
		switch answer {
		case "r", "retry":
			return engine.DecisionRetry
		case "s", "skip":
			return engine.DecisionSkip
		case "p", "pause":
			return engine.DecisionPause
		case "a", "abort":
			return engine.DecisionAbort
		}
	}
}

// Confirm asks a yes/no question. EOF counts as no.
func (t *Terminal) Confirm(question string) bool {
	for {
		fmt.Fprintf(t.out, "%s [y/n] ", question)
		answer, err := t.readLine()
		if err != nil {
			return false
		}
		switch answer {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}
