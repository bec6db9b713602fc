package scan

import "fmt"

// IterOutcome is what a poll of the scan produced.
type IterOutcome int

const (
	// OutcomeNone means the scan is exhausted or was killed.
	OutcomeNone IterOutcome = iota
	// OutcomeOK is a batch with the schema of the previous one.
	OutcomeOK
	// OutcomeOKNewSchema is a batch, possibly empty, whose schema the caller
	// has to read again before consuming any column.
	OutcomeOKNewSchema
)

func (o IterOutcome) String() string {
	switch o {
	case OutcomeNone:
		return "NONE"
	case OutcomeOK:
		return "OK"
	case OutcomeOKNewSchema:
		return "OK_NEW_SCHEMA"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type state int

const (
	stateInit state = iota
	stateActive
	stateDone
)
