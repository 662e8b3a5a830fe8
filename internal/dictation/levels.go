package dictation

// LevelHistorySize is the number of recent levels kept for visualization.
const LevelHistorySize = 20

// LevelHistory is a fixed ring of recent audio levels, oldest first.
// Not safe for concurrent use; Session guards it.
type LevelHistory struct {
	values [LevelHistorySize]float32
	next   int
}

func (h *LevelHistory) Push(level float32) {
	h.values[h.next] = level
	h.next = (h.next + 1) % LevelHistorySize
}

func (h *LevelHistory) Values() []float32 {
	out := make([]float32, 0, LevelHistorySize)
	out = append(out, h.values[h.next:]...)
	out = append(out, h.values[:h.next]...)
	return out
}

func (h *LevelHistory) Reset() {
	*h = LevelHistory{}
}
