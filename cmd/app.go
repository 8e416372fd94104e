// Package cmd implements the CLI application that converts institution
// exports into ledger records.
package cmd

import (
	"errors"
	"flag"
	"fmt"

	"github.com/beanport/beanport"
	"github.com/beanport/beanport/ibkr"
	"github.com/beanport/beanport/revolut"
	"github.com/beanport/beanport/viac"
	"github.com/beanport/beanport/viseca"
	"github.com/beanport/beanport/yuh"
	"github.com/google/subcommands"
	"github.com/spf13/viper"
)

// Commands lists the subcommands a main package registers.
var Commands = []subcommands.Command{
	&extractCmd{},
	&importersCmd{},
	&pricesCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "beanport.yaml", "Path to the importer configuration file")

// appConfig mirrors the configuration file: one list of declarations per
// institution, each becoming one importer.
type appConfig struct {
	IBKR    []ibkr.Config
	Revolut []revolut.Config
	Yuh     []yuh.Config
	Viseca  []viseca.Config
	Viac    []viac.Config
}

// LoadImporters builds all importers declared in the app config file.
// A structurally invalid declaration (missing account, bad pattern) fails
// the whole load, there is no point running a half-configured batch.
func LoadImporters() ([]beanport.Importer, error) {
	cfg, err := readConfig(*configFile)
	if err != nil {
		return nil, err
	}
	return cfg.importers()
}

func readConfig(path string) (appConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return appConfig{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("unmarshal config %q: %w", path, err)
	}
	return cfg, nil
}

// importers builds every declared importer, collecting all configuration
// errors so a misconfigured file is reported in one run.
func (c appConfig) importers() ([]beanport.Importer, error) {
	var list []beanport.Importer
	var errs []error
	add := func(imp beanport.Importer, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		list = append(list, imp)
	}
	for _, cfg := range c.IBKR {
		add(ibkr.New(cfg))
	}
	for _, cfg := range c.Revolut {
		add(revolut.New(cfg))
	}
	for _, cfg := range c.Yuh {
		add(yuh.New(cfg))
	}
	for _, cfg := range c.Viseca {
		add(viseca.New(cfg))
	}
	for _, cfg := range c.Viac {
		add(viac.New(cfg))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return list, nil
}
