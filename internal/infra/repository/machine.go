package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type MachineRepository struct {
	db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

func machineFromModel(row models.Machine) (*domain.Machine, error) {
	mapping, err := decodeMapping(row.Data)
	if err != nil {
		return nil, err
	}
	machine := &domain.Machine{
		PCBID:  row.PCBID,
		Name:   row.Name,
		Region: row.Region,
		Data:   mapping,
	}
	if row.ShopID != nil {
		machine.ShopID = *row.ShopID
	}
	return machine, nil
}

// machineToRow keeps an unassigned shop as NULL so enrolled cabinets
// without a shop never collide under the unique shop index.
func machineToRow(machine *domain.Machine) (models.Machine, error) {
	data, err := json.Marshal(machine.Data)
	if err != nil {
		return models.Machine{}, err
	}
	row := models.Machine{
		PCBID:  machine.PCBID,
		Name:   machine.Name,
		Region: machine.Region,
		Data:   data,
	}
	if machine.ShopID != 0 {
		shopID := machine.ShopID
		row.ShopID = &shopID
	}
	return row, nil
}

func (r *MachineRepository) Get(ctx context.Context, pcbid string) (*domain.Machine, error) {
	var row models.Machine
	err := r.db.WithContext(ctx).
		Where("pcb_id = ?", pcbid).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "machine"}
	}
	if err != nil {
		return nil, err
	}
	return machineFromModel(row)
}

// FromShopID resolves the numeric shop alias to a PCBID.
func (r *MachineRepository) FromShopID(ctx context.Context, shopID int64) (string, error) {
	var row models.Machine
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.NotFoundError{Resource: "machine"}
	}
	if err != nil {
		return "", err
	}
	return row.PCBID, nil
}

func (r *MachineRepository) Put(ctx context.Context, machine *domain.Machine) error {
	row, err := machineToRow(machine)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pcb_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "region", "data"}),
	}).Create(&row).Error
}
