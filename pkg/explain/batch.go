package explain

// TextBatch is an immutable batch of raw text instances to be explained.
// Construct one with NewTextBatch; the zero value is an empty batch.
type TextBatch struct {
	texts []string
}

// NewTextBatch creates a batch from the given texts. The input slice is
// copied so later mutation by the caller cannot change the batch.
func NewTextBatch(texts ...string) TextBatch {
	copied := make([]string, len(texts))
	copy(copied, texts)
	return TextBatch{texts: copied}
}

// Values returns a copy of the raw texts in batch order.
func (b TextBatch) Values() []string {
	copied := make([]string, len(b.texts))
	copy(copied, b.texts)
	return copied
}

// Len returns the number of instances in the batch.
func (b TextBatch) Len() int {
	return len(b.texts)
}

// At returns the instance at index i. It panics if i is out of range,
// matching slice semantics.
func (b TextBatch) At(i int) string {
	return b.texts[i]
}
