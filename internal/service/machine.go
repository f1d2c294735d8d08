package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

var tracer = otel.Tracer("machine")

// MachineRepository is the slice of cabinet storage the service needs.
type MachineRepository interface {
	Get(ctx context.Context, pcbid string) (*domain.Machine, error)
	Put(ctx context.Context, machine *domain.Machine) error
}

// MachineService resolves the PCBID every request carries. A private
// network trusts its cabinets, so an unknown PCBID is enrolled on
// first contact instead of rejected.
type MachineService struct {
	config   domain.Config
	machines MachineRepository
}

func NewMachineService(
	config domain.Config,
	machines MachineRepository,
) *MachineService {
	return &MachineService{
		config:   config,
		machines: machines,
	}
}

func validPCBID(pcbid string) bool {
	if len(pcbid) < 12 || len(pcbid) > 20 {
		return false
	}
	for _, r := range pcbid {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func (s *MachineService) Identify(ctx context.Context, pcbid string) (*domain.Machine, error) {
	ctx, span := tracer.Start(ctx, "Machine.Service.Identify")
	defer span.End()

	if !validPCBID(pcbid) {
		err := fmt.Errorf("invalid pcbid %q: %w", pcbid, domain.ErrInvalidArgument)
		span.RecordError(err)
		return nil, err
	}

	machine, err := s.machines.Get(ctx, pcbid)
	if err == nil {
		return machine, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(errors.Wrap(err, "machine lookup failed"))
		return nil, err
	}

	machine = &domain.Machine{
		PCBID:  pcbid,
		Region: s.config.Region,
		Data:   arcanet.NewMapping(),
	}
	if err := s.machines.Put(ctx, machine); err != nil {
		span.RecordError(errors.Wrap(err, "machine enroll failed"))
		return nil, err
	}
	return machine, nil
}

// Get looks up a cabinet without enrolling it.
func (s *MachineService) Get(ctx context.Context, pcbid string) (*domain.Machine, error) {
	ctx, span := tracer.Start(ctx, "Machine.Service.Get")
	defer span.End()

	machine, err := s.machines.Get(ctx, pcbid)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return machine, nil
}
