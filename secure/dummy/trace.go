//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package dummy

import "fmt"

// EventKind classifies the entries of a trace.
type EventKind int

const (
	// ParEvent is recorded when a parallel batch is declared.
	ParEvent EventKind = iota
	// SeqEvent is recorded when a sequential step is declared.
	SeqEvent
	// OpEvent is recorded for every arithmetic operation.
	OpEvent
)

func (k EventKind) String() string {
	switch k {
	case ParEvent:
		return "Par"
	case SeqEvent:
		return "Seq"
	case OpEvent:
		return "Op"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one entry of the trace of a computation declared against an Engine.
type Event struct {
	Kind EventKind
	// Name is the operation name of an OpEvent, e.g. "Real.Exp".
	Name string
	// Width is the number of steps of a ParEvent.
	Width int
	// Depth is the number of enclosing Par and Seq steps.
	Depth int
}

func (e Event) String() string {
	switch e.Kind {
	case ParEvent:
		return fmt.Sprintf("Par(%d)@%d", e.Width, e.Depth)
	case OpEvent:
		return fmt.Sprintf("%s@%d", e.Name, e.Depth)
	default:
		return fmt.Sprintf("%v@%d", e.Kind, e.Depth)
	}
}

// Ops returns the names of the operations in the trace, in declaration order.
func Ops(trace []Event) []string {
	var ops []string
	for _, e := range trace {
		if e.Kind == OpEvent {
			ops = append(ops, e.Name)
		}
	}
	return ops
}
