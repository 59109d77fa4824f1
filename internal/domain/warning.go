package domain

import "fmt"

// Warning is a non-fatal failure of a bookkeeping write that ran after the
// primary operation already succeeded.
type Warning struct {
	Op  string
	Err error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Op, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Warnings accumulates bookkeeping failures for a single operation.
type Warnings []Warning

// Add records err under op; nil errors are ignored.
func (ws *Warnings) Add(op string, err error) {
	if err == nil {
		return
	}
	*ws = append(*ws, Warning{Op: op, Err: err})
}

// Ops lists the operations that failed, in order.
func (ws Warnings) Ops() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Op)
	}
	return out
}

// Strings renders each warning for logs and JSON payloads.
func (ws Warnings) Strings() []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Error())
	}
	return out
}
