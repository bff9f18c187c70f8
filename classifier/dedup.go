package classifier

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupDistance is the maximum Hamming distance between two difference
// hashes below which avatars are treated as the same image.
const dedupDistance = 4

type hashedKey struct {
	hash *goimagehash.ImageHash
	key  string
}

// dedupIndex maps perceptual hashes of already-classified avatars back to
// their cache keys, so the same image re-uploaded under a fresh CDN URL can
// reuse the cached result instead of re-running inference. Bounded to cap
// entries, oldest dropped first. Hash failures degrade gracefully: the image
// is simply classified as usual.
type dedupIndex struct {
	mu     sync.Mutex
	cap    int
	hashes []hashedKey
}

func newDedupIndex(capacity int) *dedupIndex {
	return &dedupIndex{cap: capacity}
}

// lookup hashes img and returns the cache key of a perceptually identical,
// previously seen avatar, plus the computed hash for a later remember call.
func (d *dedupIndex) lookup(img image.Image) (string, *goimagehash.ImageHash) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.hashes {
		dist, err := hash.Distance(h.hash)
		if err == nil && dist <= dedupDistance {
			return h.key, hash
		}
	}
	return "", hash
}

func (d *dedupIndex) remember(hash *goimagehash.ImageHash, key string) {
	if hash == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hashes = append(d.hashes, hashedKey{hash: hash, key: key})
	if len(d.hashes) > d.cap {
		d.hashes = d.hashes[len(d.hashes)-d.cap:]
	}
}
