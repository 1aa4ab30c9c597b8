// Package scene is the in-memory world model a scene file loads into: a tile
// terrain plus lighting, water and foliage tuning.
package scene

import "github.com/google/uuid"

type Water struct {
	Alpha          float32
	Mix            float32
	AmplitudeWave  float32
	AnimationSpeed float32
	AngleWaveSpeed float32
	Material       string
}

type Foliage struct {
	Amplitude float32
	Speed     float32
}

func DefaultWater() Water {
	return Water{Alpha: 0.7, Mix: 0.5, AmplitudeWave: 0.05, AnimationSpeed: 0.02, AngleWaveSpeed: 1, Material: "water"}
}

func DefaultFoliage() Foliage {
	return Foliage{Amplitude: 0.05, Speed: 1}
}

type Scene struct {
	Name        string
	UID         string
	FinalShader string
	SkyboxName  string

	AmbientLight Color
	SunLight     Color

	Water   *Water
	Foliage *Foliage

	terrain *Terrain
}

// New creates a scene with an empty columns x rows terrain. An empty uid is
// replaced with a fresh random one.
func New(name, uid string, columns, rows int) *Scene {
	if uid == "" {
		uid = uuid.NewString()
	}
	w := DefaultWater()
	f := DefaultFoliage()
	return &Scene{
		Name:         name,
		UID:          uid,
		AmbientLight: Color{R: 0.3, G: 0.3, B: 0.3, A: 1},
		SunLight:     White,
		Water:        &w,
		Foliage:      &f,
		terrain:      NewTerrain(columns, rows),
	}
}

func (s *Scene) Terrain() *Terrain { return s.terrain }
