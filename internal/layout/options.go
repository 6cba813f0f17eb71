package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	RankDirTB = "TB"
	RankDirLR = "LR"
)

// Options tune the rank layout. All fields are optional; zero values fall
// back to the defaults the renderer was designed around.
type Options struct {
	RankDir string `yaml:"rankdir"`
	RankSep int    `yaml:"rank_sep"`
	NodeSep int    `yaml:"node_sep"`
	MarginX int    `yaml:"margin_x"`
	MarginY int    `yaml:"margin_y"`
}

func DefaultOptions() Options {
	return Options{
		RankDir: RankDirTB,
		RankSep: 100,
		NodeSep: 60,
		MarginX: 50,
		MarginY: 50,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.RankDir != RankDirLR {
		o.RankDir = RankDirTB
	}
	if o.RankSep <= 0 {
		o.RankSep = def.RankSep
	}
	if o.NodeSep <= 0 {
		o.NodeSep = def.NodeSep
	}
	if o.MarginX < 0 {
		o.MarginX = def.MarginX
	}
	if o.MarginY < 0 {
		o.MarginY = def.MarginY
	}
	if o.MarginX == 0 {
		o.MarginX = def.MarginX
	}
	if o.MarginY == 0 {
		o.MarginY = def.MarginY
	}
	return o
}

// LoadOptions reads layout options from a yaml file. A missing path returns
// the defaults so deployments without a config file keep working.
func LoadOptions(path string) (Options, error) {
	if path == "" {
		return DefaultOptions(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultOptions(), fmt.Errorf("read layout config: %w", err)
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return DefaultOptions(), fmt.Errorf("parse layout config: %w", err)
	}
	return opts.withDefaults(), nil
}
