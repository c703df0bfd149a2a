package pipeline

import (
	"github.com/chaos-io/yeezyframe/apperr"
)

// State 合成流程的状态
type State int

const (
	Idle State = iota
	Validating
	Removing
	Composing
	Ready
	Exporting
)

var stateNames = [...]string{
	Idle:       "idle",
	Validating: "validating",
	Removing:   "removing",
	Composing:  "composing",
	Ready:      "ready",
	Exporting:  "exporting",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy 正在等待一次调用完成，期间不接受新的文件
func (s State) Busy() bool {
	switch s {
	case Validating, Removing, Composing, Exporting:
		return true
	default:
		return false
	}
}

// Event 驱动状态变化的事件
type Event int

const (
	FileSelected Event = iota
	ValidationPassed
	ValidationFailed
	RemovalSucceeded
	RemovalFailed
	CompositionDone
	CompositionFailed
	ExportRequested
	ExportDone
)

var eventNames = [...]string{
	FileSelected:      "file_selected",
	ValidationPassed:  "validation_passed",
	ValidationFailed:  "validation_failed",
	RemovalSucceeded:  "removal_succeeded",
	RemovalFailed:     "removal_failed",
	CompositionDone:   "composition_done",
	CompositionFailed: "composition_failed",
	ExportRequested:   "export_requested",
	ExportDone:        "export_done",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{Idle, FileSelected}:           Validating,
	{Ready, FileSelected}:          Validating,
	{Validating, ValidationPassed}: Removing,
	{Validating, ValidationFailed}: Idle,
	{Removing, RemovalSucceeded}:   Composing,
	{Removing, RemovalFailed}:      Idle,
	{Composing, CompositionDone}:   Ready,
	{Composing, CompositionFailed}: Idle,
	{Ready, ExportRequested}:       Exporting,
	{Exporting, ExportDone}:        Idle,
}

// Transition 纯函数，不修改任何状态
func Transition(from State, on Event) (State, error) {
	if to, ok := transitions[edge{from, on}]; ok {
		return to, nil
	}
	if on == FileSelected && from.Busy() {
		return from, apperr.Busy("a file is already being processed (%s)", from)
	}
	return from, apperr.InvalidState("cannot handle %s in state %s", on, from)
}
