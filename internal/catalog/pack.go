package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Pack is a TOML stage pack:
//
//	[[stages]]
//	order = 1
//	title = "Stage 1"
//	...
type Pack struct {
	Stages []model.StageInput `toml:"stages"`
}

// LoadPack reads and validates a stage pack file.
func LoadPack(path string) ([]model.StageInput, error) {
	if path == "" {
		return nil, fmt.Errorf("stage pack path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage pack: %w", err)
	}
	return ParsePack(string(data))
}

// ParsePack decodes and validates stage pack contents.
func ParsePack(data string) ([]model.StageInput, error) {
	var pack Pack
	md, err := toml.Decode(data, &pack)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stage pack: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown stage pack key %q", model.ErrInvalidInput, undecoded[0].String())
	}
	if err := Validate(pack.Stages); err != nil {
		return nil, err
	}
	return pack.Stages, nil
}
