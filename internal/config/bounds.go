package config

import (
	"math"

	"lastarena/internal/domain"
)

// Arena shapes understood by BoundsConfig.
const (
	ShapeNone     = "none"
	ShapeBox      = "box"
	ShapeCylinder = "cylinder"
)

// BoundsConfig describes a static arena volume used as the boundary oracle.
type BoundsConfig struct {
	Shape string `yaml:"shape" env:"arena_bounds_shape"`

	// Box corners.
	Min domain.Vec3 `yaml:"min"`
	Max domain.Vec3 `yaml:"max"`

	// Cylinder around Center, spanning Bottom..Top on the Y axis.
	Center domain.Vec3 `yaml:"center"`
	Radius float64     `yaml:"radius" env:"arena_bounds_radius"`
	Bottom float64     `yaml:"bottom" env:"arena_bounds_bottom"`
	Top    float64     `yaml:"top" env:"arena_bounds_top"`
}

func (b BoundsConfig) validate() error {
	switch b.Shape {
	case "", ShapeNone:
		return nil
	case ShapeBox:
		if b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y || b.Min.Z >= b.Max.Z {
			return domain.NewError(domain.CodeConfiguration, "arena box min %+v must be below max %+v", b.Min, b.Max)
		}
		return nil
	case ShapeCylinder:
		if b.Radius <= 0 || b.Bottom >= b.Top {
			return domain.NewError(domain.CodeConfiguration, "arena cylinder needs a positive radius and bottom < top")
		}
		return nil
	}
	return domain.NewError(domain.CodeConfiguration, "unknown arena shape %q", b.Shape)
}

// Boundary builds the oracle for the configured shape, or nil for an unbounded arena.
func (c ArenaConfig) Boundary() domain.Boundary {
	b := c.Arena
	switch b.Shape {
	case ShapeBox:
		return Box{Min: b.Min, Max: b.Max}
	case ShapeCylinder:
		return Cylinder{Center: b.Center, Radius: b.Radius, Bottom: b.Bottom, Top: b.Top}
	}
	return nil
}

// Box is an axis-aligned arena volume.
type Box struct {
	Min, Max domain.Vec3
}

func (b Box) Contains(p domain.Vec3) bool {
	return b.DistanceFromEdge(p) >= 0
}

// DistanceFromEdge returns the smallest per-axis margin, negative when p is outside.
func (b Box) DistanceFromEdge(p domain.Vec3) float64 {
	return minOf(
		p.X-b.Min.X, b.Max.X-p.X,
		p.Y-b.Min.Y, b.Max.Y-p.Y,
		p.Z-b.Min.Z, b.Max.Z-p.Z,
	)
}

// Cylinder is a vertical arena volume.
type Cylinder struct {
	Center      domain.Vec3
	Radius      float64
	Bottom, Top float64
}

func (c Cylinder) Contains(p domain.Vec3) bool {
	return c.DistanceFromEdge(p) >= 0
}

func (c Cylinder) DistanceFromEdge(p domain.Vec3) float64 {
	return minOf(c.Radius-p.HorizontalDistance(c.Center), p.Y-c.Bottom, c.Top-p.Y)
}

func minOf(values ...float64) float64 {
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}
