package hex

// LabelTransform mirrors or swaps generation indices before they become labels.
// Every step is a cube reflection, so adjacency and distance survive the
// mapping and the neighbor table stays valid.
type LabelTransform struct {
	InvertQ bool `yaml:"invert_q"`
	InvertR bool `yaml:"invert_r"`
	SwapQR  bool `yaml:"swap_qr"`
}

// IsIdentity reports whether the transform leaves indices untouched.
func (t LabelTransform) IsIdentity() bool {
	return !t.InvertQ && !t.InvertR && !t.SwapQR
}

// Apply maps a standard axial index through the transform.
func (t LabelTransform) Apply(a Axial) Axial {
	if t.InvertQ {
		a = Axial{Q: -a.Q, R: a.Q + a.R}
	}
	if t.InvertR {
		a = Axial{Q: a.Q + a.R, R: -a.R}
	}
	if t.SwapQR {
		a = Axial{Q: a.R, R: a.Q}
	}
	return a
}

// Invert undoes Apply. Each step is an involution, so they run in reverse.
func (t LabelTransform) Invert(a Axial) Axial {
	if t.SwapQR {
		a = Axial{Q: a.R, R: a.Q}
	}
	if t.InvertR {
		a = Axial{Q: a.Q + a.R, R: -a.R}
	}
	if t.InvertQ {
		a = Axial{Q: -a.Q, R: a.Q + a.R}
	}
	return a
}

// MapIndexToAxial turns a generation index into its public label.
func MapIndexToAxial(c Convention, t LabelTransform, idx Axial) Axial {
	return c.FromIndex(t.Apply(idx))
}

// MapAxialToIndex recovers the generation index behind a label.
func MapAxialToIndex(c Convention, t LabelTransform, label Axial) (Axial, bool) {
	a, ok := c.ToIndex(label)
	if !ok {
		return Axial{}, false
	}
	return t.Invert(a), true
}
