package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/service"
)

var tracer = otel.Tracer("machine")

type MachineMiddleware struct {
	machines *service.MachineService
}

func NewMachineMiddleware(
	machines *service.MachineService,
) *MachineMiddleware {
	return &MachineMiddleware{
		machines: machines,
	}
}

// IdentifyMachine resolves the PCBID header when the cabinet sends one
// and stashes the machine record in the request context. Requests
// without the header pass through; the service handler resolves the
// envelope PCBID itself.
func (m *MachineMiddleware) IdentifyMachine(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Machine.Middleware.IdentifyMachine")
		defer span.End()

		pcbid := c.Request().Header.Get(domain.PCBIDHeader)
		if pcbid != "" {
			machine, err := m.machines.Identify(ctx, pcbid)
			if err != nil {
				span.RecordError(errors.Wrap(err, "MachineMiddleware.IdentifyMachine: identify failed"))
			} else {
				ctx = context.WithValue(ctx, domain.MachineCtxKey, machine)
				span.SetAttributes(attribute.String("PCBID", machine.PCBID))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
