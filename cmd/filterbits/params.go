package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// params resolves the calculation inputs: defaults, then the config file if
// one was given, then any flag set explicitly on the command line.
func (o *options) params(cmd *cobra.Command) (filterbits.Params, error) {
	p := filterbits.DefaultParams()
	if o.configFile != "" {
		var err error
		if p, err = loadParams(o.configFile); err != nil {
			return filterbits.Params{}, err
		}
		o.logger.Debug("loaded parameter file", zap.String("path", o.configFile))
	}

	flags := cmd.Flags()
	if flags.Changed("memtable-capacity") {
		p.MemtableCapacity = o.memtableCapacity
	}
	if flags.Changed("entries") {
		p.EntryCount = o.entryCount
	}
	if flags.Changed("size-ratio") {
		p.SizeRatio = o.sizeRatio
	}
	if flags.Changed("uniform-bits") {
		p.UniformBits = o.uniformBits
	}
	if flags.Changed("top-level-bits") {
		p.TopLevelBits = o.topLevelBits
	}
	if flags.Changed("decrement") {
		d, err := filterbits.ParseDecrement(o.decrement)
		if err != nil {
			return filterbits.Params{}, err
		}
		p.Decrement = d
	}
	if flags.Changed("unit") {
		u, err := filterbits.ParseUnit(o.unit)
		if err != nil {
			return filterbits.Params{}, err
		}
		p.Unit = u
	}

	if err := p.Validate(); err != nil {
		return filterbits.Params{}, err
	}
	o.logger.Debug("resolved parameters", zap.Any("params", p))
	return p, nil
}

// loadParams reads a parameter file. Fields missing from the file keep their
// default values.
func loadParams(path string) (filterbits.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filterbits.Params{}, errors.Wrapf(err, "reading parameter file")
	}

	p := filterbits.DefaultParams()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".json", "":
		err = json.Unmarshal(data, &p)
	default:
		return filterbits.Params{}, errors.Newf("unsupported parameter file extension %q", ext)
	}
	if err != nil {
		return filterbits.Params{}, errors.Wrapf(err, "parsing parameter file %s", path)
	}
	return p, nil
}
