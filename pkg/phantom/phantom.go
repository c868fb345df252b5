// Package phantom synthesises dynamic PET volumes made of spherical regions
// with known uptake kinetics, for exercising and benchmarking segmentation.
package phantom

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"petsegm/pkg/config"
	"petsegm/pkg/volume"
)

// ErrInvalidParams is returned for phantom parameters that cannot be built.
var ErrInvalidParams = errors.New("phantom: invalid parameters")

// Sphere is one homogeneous structure of the phantom.
type Sphere struct {
	Name   string
	Centre volume.Coord
	Radius float64

	// Curve parameters of A·(1−e^(−k1·t))·e^(−k2·t)
	Amplitude, K1, K2 float64
}

// Uptake evaluates the sphere's time-activity curve at time t.
func (s Sphere) Uptake(t float64) float64 {
	return s.Amplitude * (1 - math.Exp(-s.K1*t)) * math.Exp(-s.K2*t)
}

// contains reports whether c lies within the sphere.
func (s Sphere) contains(c volume.Coord) bool {
	dz := float64(c.Plane - s.Centre.Plane)
	dy := float64(c.Row - s.Centre.Row)
	dx := float64(c.Col - s.Centre.Col)
	return dz*dz+dy*dy+dx*dx <= s.Radius*s.Radius
}

// Params describes a phantom
type Params struct {
	Planes, Rows, Cols, Frames int

	// FrameDuration is the length of every frame; frames are contiguous
	// and start at 0
	FrameDuration float64

	// Noise is the standard deviation of additive Gaussian noise
	Noise float64

	// Seed makes the noise reproducible
	Seed uint64

	// Spheres later in the list overwrite earlier ones where they overlap
	Spheres []Sphere
}

// FromConfig converts the phantom section of a configuration.
func FromConfig(cfg *config.Config) Params {
	pc := cfg.Phantom
	p := Params{
		Planes:        pc.Planes,
		Rows:          pc.Rows,
		Cols:          pc.Cols,
		Frames:        pc.Frames,
		FrameDuration: pc.FrameDuration,
		Noise:         pc.Noise,
		Seed:          pc.Seed,
	}
	for _, r := range pc.Regions {
		p.Spheres = append(p.Spheres, Sphere{
			Name:      r.Name,
			Centre:    volume.Coord{Plane: r.Centre[0], Row: r.Centre[1], Col: r.Centre[2]},
			Radius:    r.Radius,
			Amplitude: r.Amplitude,
			K1:        r.K1,
			K2:        r.K2,
		})
	}
	return p
}

// Generate builds the dynamic image and a single-frame truth grid holding,
// for every voxel, the 1-based index of the sphere it belongs to (0 for
// background). Background voxels carry noise only.
func Generate(p Params) (dynamic, truth *volume.Grid, err error) {
	if p.FrameDuration <= 0 || p.Noise < 0 {
		return nil, nil, fmt.Errorf("%w: frame duration %g, noise %g", ErrInvalidParams, p.FrameDuration, p.Noise)
	}
	dynamic, err = volume.New(p.Planes, p.Rows, p.Cols, p.Frames)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	truth, err = volume.NewLike(dynamic, 1)
	if err != nil {
		return nil, nil, err
	}

	dynamic.FrameTimes = make([]volume.FrameTime, p.Frames)
	for f := range dynamic.FrameTimes {
		start := float64(f) * p.FrameDuration
		dynamic.FrameTimes[f] = volume.FrameTime{Start: start, End: start + p.FrameDuration}
	}
	mid := dynamic.FrameMidTimes()

	// Precompute one curve per sphere
	curves := make([][]float64, len(p.Spheres))
	for i, s := range p.Spheres {
		curves[i] = make([]float64, p.Frames)
		for f, t := range mid {
			curves[i][f] = s.Uptake(t)
		}
	}

	for i, s := range p.Spheres {
		dynamic.ForEach(func(c volume.Coord) {
			if s.contains(c) {
				copy(dynamic.TAC(c), curves[i])
				truth.Set(c, 0, float64(i+1))
			}
		})
	}

	if p.Noise > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: p.Noise, Src: rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)}
		for i := range dynamic.Data {
			dynamic.Data[i] += noise.Rand()
		}
	}
	return dynamic, truth, nil
}
