package postprocess

import "sort"

type candidate struct {
	box     [4]float32 // normalized xmin, ymin, xmax, ymax
	score   float32
	label   int
	imageID float32
}

// nonMaxSuppression greedily keeps the highest-scoring candidates whose
// Jaccard overlap with every already-kept box stays at or below the
// threshold. At most topK candidates are considered.
func nonMaxSuppression(cands []candidate, overlapThreshold float32, topK int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}

	var kept []candidate
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if jaccardOverlap(c.box, k.box) > overlapThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func jaccardOverlap(a, b [4]float32) float32 {
	ix1 := max32(a[0], b[0])
	iy1 := max32(a[1], b[1])
	ix2 := min32(a[2], b[2])
	iy2 := min32(a[3], b[3])
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	return inter / (areaA + areaB - inter)
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
