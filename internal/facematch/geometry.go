package facematch

// Detection is one face found by an embedding provider.
type Detection struct {
	Index      int
	BBox       []float64 // [x1, y1, x2, y2] in pixels
	Score      float64   // detector confidence, 0 when the detector reports none
	Descriptor Descriptor
}

// BBoxArea returns the area of an [x1, y1, x2, y2] box, 0 for malformed boxes.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// SelectPrimary picks the face an image is "about": highest detection score,
// then largest box, then lowest index. Detections without a descriptor are skipped.
func SelectPrimary(detections []Detection) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range detections {
		if len(d.Descriptor) == 0 {
			continue
		}
		if !found || primaryBefore(d, best) {
			best = d
			found = true
		}
	}
	return best, found
}

func primaryBefore(a, b Detection) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	areaA, areaB := BBoxArea(a.BBox), BBoxArea(b.BBox)
	if areaA != areaB {
		return areaA > areaB
	}
	return a.Index < b.Index
}
