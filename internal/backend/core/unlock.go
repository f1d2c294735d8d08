package core

// OwnedIDsFromBitmap expands packed ownership words: bit b of word b/32
// set means id b is owned.
func OwnedIDsFromBitmap(words []int64) []int64 {
	var ids []int64
	for w, word := range words {
		for b := 0; b < 32; b++ {
			if word&(1<<b) != 0 {
				ids = append(ids, int64(w*32+b))
			}
		}
	}
	return ids
}

// BitmapFromOwnedIDs packs ids into wordCount 32-bit words. Ids outside
// the bitmap are dropped.
func BitmapFromOwnedIDs(ids []int64, wordCount int) []int64 {
	words := make([]int64, wordCount)
	for _, id := range ids {
		if id < 0 || int(id) >= wordCount*32 {
			continue
		}
		words[id/32] |= 1 << (id % 32)
	}
	return words
}

// AllOnesBitmap is the force-unlock projection: every id owned.
func AllOnesBitmap(wordCount int) []int64 {
	words := make([]int64, wordCount)
	for i := range words {
		words[i] = 0xFFFFFFFF
	}
	return words
}
