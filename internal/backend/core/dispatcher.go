package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

// ErrUnknownGame means no registered factory serves the request's game
// code and version.
var ErrUnknownGame = errors.New("unknown game")

type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch routes one decoded request to its title handler. The request
// root carries exactly one child whose name is the module and whose
// "method" attribute selects the handler. The returned status follows
// the wire convention; the reply is nil only for transport-level
// failures.
func (d *Dispatcher) Dispatch(ctx context.Context, machine arcanet.MachineIdentity, root *arcanet.Node) (*arcanet.Node, int, error) {
	if root == nil || len(root.Children) != 1 {
		return nil, arcanet.StatusMalformed, arcanet.ErrMalformedNode
	}
	body := root.Children[0]
	module := body.Name
	method := body.Attribute("method")
	if module == "" || method == "" {
		return nil, arcanet.StatusMalformed, arcanet.ErrMalformedNode
	}

	title := d.registry.Resolve(machine.Model, nil)
	if title == nil {
		return nil, arcanet.StatusMalformed, ErrUnknownGame
	}

	req := &Request{
		Machine: machine,
		Module:  module,
		Method:  method,
		Root:    root,
		Body:    body,
	}

	var reply *arcanet.Node
	handler, ok := title.Handler(module, method)
	if !ok {
		slog.InfoContext(ctx, "unhandled request",
			slog.String("game", title.Game()),
			slog.String("module", module),
			slog.String("method", method))
		reply = title.UnhandledRequest(module, method)
	} else {
		var err error
		reply, err = handler(ctx, req)
		if err != nil {
			return nil, statusForError(err), err
		}
	}

	response := arcanet.Void("response")
	if reply != nil {
		response.AddChild(reply)
	}
	return response, arcanet.StatusSuccess, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrDeadlineExceeded):
		return arcanet.StatusDeadline
	case errors.Is(err, domain.ErrNoProfile):
		return arcanet.StatusNoProfile
	case errors.Is(err, arcanet.ErrMalformedNode):
		return arcanet.StatusMalformed
	case errors.Is(err, domain.ErrInvalidArgument):
		return arcanet.StatusMalformed
	default:
		return arcanet.StatusMalformed
	}
}
