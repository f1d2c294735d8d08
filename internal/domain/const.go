package domain

const (
	MachineCtxKey = "arc-machine"
)

const (
	PCBIDHeader = "x-arcanet-pcbid"
)
