package delivery

// Dispatch policy. A recipient list at or under BatchThreshold goes out as one
// message; longer lists are split into ChunkSize pieces sent in one bulk call.
const (
	BatchThreshold = 50
	ChunkSize      = 50
)

// Dispatch modes.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// ModeFor returns the dispatch mode for n recipients.
func ModeFor(n int) string {
	if n <= BatchThreshold {
		return ModeSingle
	}
	return ModeBatch
}

// Chunk partitions items into contiguous slices of at most size elements.
// PRE: size > 0
// POST: Concatenating the result yields items; only the last chunk may be short
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = ChunkSize
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
