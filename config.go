package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/hesusruiz/hamlgo/haml"
	"github.com/hesusruiz/vcutils/yaml"
	"go.uber.org/zap"
)

// loadConfig reads the configuration file. A missing file is not an error, and an empty
// configuration is returned instead.
func loadConfig(fileName string) (*yaml.YAML, error) {
	if len(fileName) == 0 {
		return yaml.ParseYaml("")
	}

	if _, err := os.Stat(fileName); errors.Is(err, fs.ErrNotExist) {
		return yaml.ParseYaml("")
	}

	cfg, err := yaml.ParseYamlFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", fileName, err)
	}
	return cfg, nil
}

// configBool reads a boolean value, accepting the usual spellings
func configBool(cfg *yaml.YAML, key string, defValue bool) (bool, error) {
	str := strings.TrimSpace(cfg.String(key, ""))
	if len(str) == 0 {
		return defValue, nil
	}
	switch strings.ToLower(str) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return defValue, fmt.Errorf("invalid boolean for %s: %q", key, str)
	}
	return b, nil
}

// parseCustomTags converts specifications like "switch:endswitch" into the map of
// custom self-closing tags. A spec may hold several entries separated by commas.
func parseCustomTags(specs []string) (map[string]string, error) {
	tags := make(map[string]string)
	for _, spec := range specs {
		for _, entry := range strings.Split(spec, ",") {
			entry = strings.TrimSpace(entry)
			if len(entry) == 0 {
				continue
			}
			name, end, found := strings.Cut(entry, ":")
			name = strings.TrimSpace(name)
			end = strings.TrimSpace(end)
			if !found || len(name) == 0 || len(end) == 0 {
				return nil, fmt.Errorf("invalid custom tag %q, expected name:endname", entry)
			}
			tags[name] = end
		}
	}
	return tags, nil
}

// compilerSettings are the values that can come both from the config file and the command line.
// Command line values, when set, win.
type compilerSettings struct {
	attrWrapper    string
	format         string
	dialect        string
	escapeAttrs    bool
	cdata          bool
	allowPython    bool
	debugTree      bool
	highlightStyle string
	customTags     []string
}

// buildOptions merges the config file with the command line settings
func buildOptions(cfg *yaml.YAML, cl compilerSettings, log *zap.SugaredLogger) (*haml.Options, error) {
	var err error
	opts := &haml.Options{Logger: log, DebugTree: cl.debugTree}

	wrapper := cl.attrWrapper
	if len(wrapper) == 0 {
		wrapper = cfg.String("hamlgo.attrWrapper", "'")
	}
	if wrapper != "'" && wrapper != `"` {
		return nil, fmt.Errorf("attribute wrapper must be ' or \", not %q", wrapper)
	}
	opts.AttrWrapper = wrapper[0]

	format := cl.format
	if len(format) == 0 {
		format = cfg.String("hamlgo.format", "html5")
	}
	var ok bool
	if opts.Format, ok = haml.ParseFormat(format); !ok {
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	dialect := cl.dialect
	if len(dialect) == 0 {
		dialect = cfg.String("hamlgo.dialect", "django")
	}
	if opts.Dialect, ok = haml.ParseDialect(dialect); !ok {
		return nil, fmt.Errorf("unknown template dialect %q", dialect)
	}

	if opts.EscapeAttrs, err = configBool(cfg, "hamlgo.escapeAttrs", false); err != nil {
		return nil, err
	}
	opts.EscapeAttrs = opts.EscapeAttrs || cl.escapeAttrs

	if opts.CDATA, err = configBool(cfg, "hamlgo.cdata", false); err != nil {
		return nil, err
	}
	opts.CDATA = opts.CDATA || cl.cdata

	if opts.AllowPython, err = configBool(cfg, "hamlgo.allowPython", false); err != nil {
		return nil, err
	}
	opts.AllowPython = opts.AllowPython || cl.allowPython

	opts.HighlightStyle = cl.highlightStyle
	if len(opts.HighlightStyle) == 0 {
		opts.HighlightStyle = cfg.String("hamlgo.highlightStyle", "github")
	}

	specs := append([]string{cfg.String("hamlgo.selfClosingTags", "")}, cl.customTags...)
	if opts.CustomSelfClosingTags, err = parseCustomTags(specs); err != nil {
		return nil, err
	}

	return opts, nil
}
