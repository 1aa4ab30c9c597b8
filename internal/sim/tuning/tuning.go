package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the defaults applied to newly created scenes.
type Tuning struct {
	FinalShader  string     `yaml:"final_shader"`
	Skybox       string     `yaml:"skybox"`
	AmbientColor [4]float32 `yaml:"ambient_color"`
	SunColor     [4]float32 `yaml:"sun_color"`
	DebugTileGid int32      `yaml:"debug_tile_gid"`

	Water   Water   `yaml:"water"`
	Foliage Foliage `yaml:"foliage"`
	Gen     Gen     `yaml:"gen"`
}

type Water struct {
	Alpha          float32 `yaml:"alpha"`
	Mix            float32 `yaml:"mix"`
	Amplitude      float32 `yaml:"amplitude"`
	AnimationSpeed float32 `yaml:"animation_speed"`
	Speed          float32 `yaml:"speed"`
	Material       string  `yaml:"material"`
}

type Foliage struct {
	Amplitude float32 `yaml:"amplitude"`
	Speed     float32 `yaml:"speed"`
}

// Gen parameterises the demo terrain generator.
type Gen struct {
	Seed            int64   `yaml:"seed"`
	RegionSize      int     `yaml:"region_size"`
	MaxHeight       float32 `yaml:"max_height"`
	WaterLevel      float32 `yaml:"water_level"`
	FoliagePermille int     `yaml:"foliage_permille"`
}

// Default mirrors configs/tuning.yaml.
func Default() Tuning {
	return Tuning{
		FinalShader:  "default",
		AmbientColor: [4]float32{0.3, 0.3, 0.3, 1},
		SunColor:     [4]float32{1, 1, 1, 1},
		Water: Water{
			Alpha:          0.7,
			Mix:            0.5,
			Amplitude:      0.05,
			AnimationSpeed: 0.02,
			Speed:          1,
			Material:       "water",
		},
		Foliage: Foliage{Amplitude: 0.05, Speed: 1},
		Gen: Gen{
			Seed:            1337,
			RegionSize:      8,
			MaxHeight:       4,
			WaterLevel:      0.5,
			FoliagePermille: 60,
		},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
