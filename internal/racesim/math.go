package racesim

import "math"

type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

var Up = Vector3{Y: 1}

func (a Vector3) DistanceTo(b Vector3) float64 {
	return b.Sub(a).Magnitude()
}

func (a Vector3) Add(b Vector3) Vector3 {
	return Vector3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func (a Vector3) Sub(b Vector3) Vector3 {
	return Vector3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func (a Vector3) Mul(s float64) Vector3 {
	return Vector3{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func (a Vector3) Dot(b Vector3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vector3) Cross(b Vector3) Vector3 {
	return Vector3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a Vector3) Magnitude() float64 {
	return math.Sqrt(a.Dot(a))
}

// Normalize returns the unit vector of a, or the zero vector if a has no length.
func (a Vector3) Normalize() Vector3 {
	m := a.Magnitude()

	if m == 0 {
		return Vector3{}
	}

	return a.Mul(1 / m)
}

func (a Vector3) IsZero() bool {
	return a.X == 0 && a.Y == 0 && a.Z == 0
}

func (a Vector3) IsFinite() bool {
	return isFinite(a.X) && isFinite(a.Y) && isFinite(a.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
