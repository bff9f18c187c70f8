package classifier

import "sort"

// Tag is a label whose aggregate confidence exceeded the reporting threshold.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
}

// ExtractTags emits a Tag for every label whose maxProbs entry exceeds
// threshold, sorted descending by confidence. The threshold is intentionally
// low relative to downstream decision thresholds: this pipeline surfaces
// signal, it does not adjudicate.
func ExtractTags(maxProbs []float32, threshold float32) []Tag {
	var tags []Tag
	for i, p := range maxProbs {
		if i >= len(TagLabels) {
			break
		}
		if p > threshold {
			tags = append(tags, Tag{Name: TagLabels[i], Confidence: p})
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Confidence > tags[j].Confidence
	})
	return tags
}
