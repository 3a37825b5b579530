package facematch

import "github.com/kozaktomas/facegate/internal/database"

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b Descriptor) float64 {
	return database.EuclideanDistance(a, b)
}

// candidate is the running best match during a scan.
type candidate struct {
	identity *database.StoredIdentity
	distance float64
}

// better reports whether (key, d) beats the current best. The best starts at
// the threshold with no identity, so only distances strictly below the
// threshold are accepted. Equal distances go to the lexicographically
// smallest key, which makes the result independent of scan order.
func (c *candidate) better(key string, d float64) bool {
	if d < c.distance {
		return true
	}
	return d == c.distance && c.identity != nil && key < c.identity.Key
}

// selectBest scans identities and returns the global minimum under threshold.
func selectBest(probe Descriptor, identities []database.StoredIdentity, threshold float64) (*database.StoredIdentity, float64) {
	best := candidate{distance: threshold}
	for i := range identities {
		d := Distance(probe, identities[i].Descriptor)
		if best.better(identities[i].Key, d) {
			best.identity = &identities[i]
			best.distance = d
		}
	}
	return best.identity, best.distance
}
