package property

import (
	"math"
	"strconv"
)

// BindingPriority ranks concurrently active value sources. Lower values win.
type BindingPriority int

const (
	PriorityAnimation       BindingPriority = -1
	PriorityLocalValue      BindingPriority = 0
	PriorityStyleTrigger    BindingPriority = 1
	PriorityTemplatedParent BindingPriority = 2
	PriorityStyle           BindingPriority = 3
	PriorityInherited       BindingPriority = 4
	PriorityUnset           BindingPriority = math.MaxInt32
)

func (p BindingPriority) String() string {
	switch p {
	case PriorityAnimation:
		return "Animation"
	case PriorityLocalValue:
		return "LocalValue"
	case PriorityStyleTrigger:
		return "StyleTrigger"
	case PriorityTemplatedParent:
		return "TemplatedParent"
	case PriorityStyle:
		return "Style"
	case PriorityInherited:
		return "Inherited"
	case PriorityUnset:
		return "Unset"
	default:
		return "Priority(" + strconv.Itoa(int(p)) + ")"
	}
}

// settable reports whether values may be stored at this priority. Inherited
// and Unset are resolution results, not storage slots.
func (p BindingPriority) settable() bool {
	return p >= PriorityAnimation && p <= PriorityStyle
}

// BindingMode is the direction a binding flows in by default.
type BindingMode int

const (
	BindingModeDefault BindingMode = iota
	BindingModeOneWay
	BindingModeTwoWay
	BindingModeOneTime
	BindingModeOneWayToSource
)

func (m BindingMode) String() string {
	switch m {
	case BindingModeDefault:
		return "Default"
	case BindingModeOneWay:
		return "OneWay"
	case BindingModeTwoWay:
		return "TwoWay"
	case BindingModeOneTime:
		return "OneTime"
	case BindingModeOneWayToSource:
		return "OneWayToSource"
	default:
		return "BindingMode(" + strconv.Itoa(int(m)) + ")"
	}
}

type unsetType struct{}

func (unsetType) String() string { return "(unset)" }

// UnsetValue is the reserved sentinel that clears a value when set and marks
// the old value of an Initialized notification.
var UnsetValue any = unsetType{}

// IsUnset reports whether v is UnsetValue.
func IsUnset(v any) bool {
	_, ok := v.(unsetType)
	return ok
}
