package storage

// ActivationDepth decides how far activation descends through references.
type ActivationDepth interface {
	RequiresActivation() bool
	Descend() ActivationDepth
}

// FullActivationDepth activates the whole reachable graph.
type FullActivationDepth struct{}

func (FullActivationDepth) RequiresActivation() bool {
	return true
}

func (d FullActivationDepth) Descend() ActivationDepth {
	return d
}

// FixedActivationDepth activates the given number of levels. Objects below
// stay instantiated with zero fields until activated explicitly.
type FixedActivationDepth int

func (d FixedActivationDepth) RequiresActivation() bool {
	return d > 0
}

func (d FixedActivationDepth) Descend() ActivationDepth {
	if d <= 0 {
		return d
	}
	return d - 1
}
