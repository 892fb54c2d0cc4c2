package fid

// RotationPolicy decides which FIDs may carry a rotation other than NE.
//
// Only animations of the Directional category listed in Eligible are rendered
// for several facings, and even then not every asset has art for every
// facing. Everything else is drawn facing NE.
type RotationPolicy struct {
	Directional Category
	Eligible    map[int]bool
}

// NewRotationPolicy returns a policy making animation codes first..last of
// category c eligible, minus the codes in except.
func NewRotationPolicy(c Category, first, last int, except ...int) RotationPolicy {
	p := RotationPolicy{
		Directional: c,
		Eligible:    make(map[int]bool, last-first+1),
	}
	for anim := first; anim <= last; anim++ {
		p.Eligible[anim] = true
	}
	for _, anim := range except {
		delete(p.Eligible, anim)
	}
	return p
}

// IsDirectional reports whether art for category c and animation anim may
// exist in more than one rotation.
func (p RotationPolicy) IsDirectional(c Category, anim int) bool {
	return c == p.Directional && p.Eligible[anim]
}

// ResolveRotation picks the rotation to pack into a FID.
//
// Non-directional art always resolves to NE. For directional art, exists is
// asked whether the requested rotation has art; if not, E is tried (unless E
// was what was requested), and NE is the last resort.
func ResolveRotation(p RotationPolicy, c Category, id, anim, weapon int, requested Rotation, exists func(FID) bool) Rotation {
	if !p.IsDirectional(c, anim) {
		return NE
	}
	if exists(Pack(c, id, anim, weapon, requested)) {
		return requested
	}
	if requested != E && exists(Pack(c, id, anim, weapon, E)) {
		return E
	}
	return NE
}
