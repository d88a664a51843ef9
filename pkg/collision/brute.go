package collision

// BruteForce tests every pair of bodies against each other. It returns the
// same pairs as Tree.CollideSelf for a group holding bodies in this order,
// with the later body as Body1, and serves as a reference for debugging.
func BruteForce(bodies []Collidable) []Details {
	var out []Details
	for i, a := range bodies {
		boxA := a.AABB()
		for _, b := range bodies[i+1:] {
			boxB := b.AABB()
			if boxB.Overlaps(boxA) {
				out = append(out, computeDetails(b, boxB, a, boxA))
			}
		}
	}
	return out
}
