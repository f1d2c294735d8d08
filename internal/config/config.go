package config

import (
	"os"

	"github.com/go-yaml/yaml"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

type Config struct {
	Network Network `yaml:"network"`
	Server  Server  `yaml:"server"`

	// Titles holds each title's option bag. Recognized keys are
	// published per title; everything else is ignored.
	Titles map[string]map[string]any `yaml:"titles"`
}

type Network struct {
	FQDN   string `yaml:"fqdn"`
	Name   string `yaml:"name"`
	Region int    `yaml:"region"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// Domain projects the loaded file onto the runtime config the handlers
// consume, converting each title's option section into a Mapping.
func (c Config) Domain() domain.Config {
	options := make(map[string]*arcanet.Mapping, len(c.Titles))
	for series, section := range c.Titles {
		options[series] = mappingFromSection(section)
	}

	return domain.Config{
		FQDN:          c.Network.FQDN,
		Name:          c.Network.Name,
		Region:        c.Network.Region,
		EnableTrace:   c.Server.EnableTrace,
		TraceEndpoint: c.Server.TraceEndpoint,
		TitleOptions:  options,
	}
}

func mappingFromSection(section map[string]any) *arcanet.Mapping {
	bag := arcanet.NewMapping()
	for key, value := range section {
		switch v := value.(type) {
		case bool:
			bag.ReplaceBool(key, v)
		case int:
			bag.ReplaceInt(key, int64(v))
		case int64:
			bag.ReplaceInt(key, v)
		case float64:
			bag.ReplaceFloat(key, v)
		case string:
			bag.ReplaceStr(key, v)
		}
	}
	return bag
}
