package arcanet

import (
	"fmt"
	"strconv"
	"strings"
)

// Model is the declared model string of a cabinet, in the
// gamecode:dest:spec:rev:datecode form the wire protocol uses.
type Model struct {
	GameCode string
	Dest     string
	Spec     string
	Rev      string
	Version  int
}

// ParseModel parses a model string. The datecode may be omitted for
// old-style models, in which case Version is -1.
func ParseModel(raw string) (Model, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 && len(parts) != 5 {
		return Model{}, fmt.Errorf("invalid model string %q", raw)
	}
	if len(parts[0]) != 3 {
		return Model{}, fmt.Errorf("invalid game code %q", parts[0])
	}

	model := Model{
		GameCode: parts[0],
		Dest:     parts[1],
		Spec:     parts[2],
		Rev:      parts[3],
		Version:  -1,
	}
	if len(parts) == 5 {
		version, err := strconv.Atoi(parts[4])
		if err != nil {
			return Model{}, fmt.Errorf("invalid model datecode %q", parts[4])
		}
		model.Version = version
	}
	return model, nil
}

func (m Model) String() string {
	base := strings.Join([]string{m.GameCode, m.Dest, m.Spec, m.Rev}, ":")
	if m.Version < 0 {
		return base
	}
	return base + ":" + strconv.Itoa(m.Version)
}

// MachineIdentity is the per-request cabinet identity supplied by the
// transport.
type MachineIdentity struct {
	PCBID string
	Model Model
}
