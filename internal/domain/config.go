package domain

import "github.com/yumesaki/arcanet"

// Config is the server-level runtime configuration shared with
// handlers and services.
type Config struct {
	FQDN          string `yaml:"fqdn"`
	Name          string `yaml:"name"`
	Region        int    `yaml:"region"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`

	// TitleOptions holds each title's option bag keyed by game
	// series name (e.g. "jubeat", "sdvx"). Unknown keys inside a
	// bag are ignored by the titles.
	TitleOptions map[string]*arcanet.Mapping `yaml:"-"`
}

// TitleConfig returns the option bag for one title series, never nil.
func (c Config) TitleConfig(series string) *arcanet.Mapping {
	if bag, ok := c.TitleOptions[series]; ok && bag != nil {
		return bag
	}
	return arcanet.NewMapping()
}
