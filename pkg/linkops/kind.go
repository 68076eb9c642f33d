package linkops

import (
	"fmt"
	"strings"
)

// Kind is the kind of operation applied to an interface
type Kind int

// Operation kinds
const (
	Suspend Kind = iota + 1
	Resume
	Flap
)

// Kinds returns the supported operation kinds
func Kinds() []Kind {
	return []Kind{Suspend, Resume, Flap}
}

func (k Kind) String() string {
	switch k {
	case Suspend:
		return "suspend"
	case Resume:
		return "resume"
	case Flap:
		return "flap"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind returns the Kind with the given name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(strings.TrimSpace(name), k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("invalid operation %q: must be one of suspend, resume or flap", name)
}
