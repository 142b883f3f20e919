package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahrav/fringeproc/internal/app/enablement"
)

type stepKind string

const (
	stepOpen       stepKind = "open"
	stepMask       stepKind = "mask"
	stepSave       stepKind = "save"
	stepUnwrap     stepKind = "unwrap"
	stepDemodulate stepKind = "demodulate"
	stepCursor     stepKind = "cursor"
	stepCancel     stepKind = "cancel"
	stepClose      stepKind = "close"
	stepQuit       stepKind = "quit"
)

// stepActions maps steps to the menu actions they trigger.
var stepActions = map[stepKind]string{
	stepOpen:       "open",
	stepMask:       "open_mask",
	stepSave:       "save",
	stepUnwrap:     "phase_unwrapping",
	stepDemodulate: "phase_demodulation",
	stepClose:      "close",
	stepQuit:       "quit",
}

// step is one scripted user interaction.
type step struct {
	kind   stepKind
	arg    string
	async  bool
	x, y   int
	cancel enablement.OperationKind
}

func (s step) String() string {
	out := string(s.kind)
	if s.arg != "" {
		out += "=" + s.arg
	}
	if s.async {
		out += "&"
	}
	return out
}

// parseSteps parses the arguments of the run command.
func parseSteps(args []string) ([]step, error) {
	steps := make([]step, 0, len(args))
	for _, arg := range args {
		s, err := parseStep(arg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func parseStep(raw string) (step, error) {
	text, async := strings.CutSuffix(strings.TrimSpace(raw), "&")
	name, arg, hasArg := strings.Cut(text, "=")
	s := step{kind: stepKind(name), arg: arg, async: async}

	switch s.kind {
	case stepOpen, stepMask, stepSave:
		if arg == "" {
			return step{}, fmt.Errorf("step %q needs a path", raw)
		}
	case stepUnwrap, stepDemodulate, stepClose, stepQuit:
		if hasArg {
			return step{}, fmt.Errorf("step %q takes no argument", raw)
		}
	case stepCursor:
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return step{}, fmt.Errorf("step %q needs X,Y", raw)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xs))
		if err != nil {
			return step{}, fmt.Errorf("step %q: invalid x: %w", raw, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ys))
		if err != nil {
			return step{}, fmt.Errorf("step %q: invalid y: %w", raw, err)
		}
		s.x, s.y = x, y
	case stepCancel:
		kind := enablement.OperationKind(arg)
		switch kind {
		case enablement.OperationOpen, enablement.OperationOpenMask, enablement.OperationSave, enablement.OperationProcessing:
		default:
			return step{}, fmt.Errorf("step %q: unknown operation kind %q", raw, arg)
		}
		s.cancel = kind
	default:
		return step{}, fmt.Errorf("unknown step %q", raw)
	}
	return s, nil
}
