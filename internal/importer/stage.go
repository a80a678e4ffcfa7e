package importer

// Stage is one step of an import run.
type Stage int

const (
	StageInitialize Stage = iota
	StageMapFields
	StageValidate
	StageProcess
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageInitialize, StageMapFields, StageValidate, StageProcess}

func (s Stage) String() string {
	switch s {
	case StageInitialize:
		return "initialize"
	case StageMapFields:
		return "map-fields"
	case StageValidate:
		return "validate"
	case StageProcess:
		return "process"
	default:
		return "unknown"
	}
}

// Policy controls how a stage is offered to registered handlers.
type Policy int

const (
	// PolicyShortCircuit stops at the first claim. Once the run is claimed,
	// only the claiming handler is consulted.
	PolicyShortCircuit Policy = iota

	// PolicyBroadcast offers the stage to every handler. More than one claim
	// is reported as ErrDuplicateClaim.
	PolicyBroadcast
)

func (p Policy) String() string {
	if p == PolicyBroadcast {
		return "broadcast"
	}
	return "short-circuit"
}
