package domain

// Position is a point in scene coordinates
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is the extent of a node in scene coordinates
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Add returns p translated by q
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p translated by -q
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Midpoint returns the point halfway between p and q
func Midpoint(p, q Position) Position {
	return Position{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Center returns the offset from a node's top-left corner to its center
func (s Size) Center() Position {
	return Position{X: s.Width / 2, Y: s.Height / 2}
}
