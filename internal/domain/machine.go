package domain

import "github.com/yumesaki/arcanet"

// Machine is one cabinet record, looked up by PCBID or by its numeric
// shop alias.
type Machine struct {
	PCBID  string
	Name   string
	Region int
	ShopID int64
	Data   *arcanet.Mapping
}
