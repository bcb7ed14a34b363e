package postprocessors

// Processor names, in the order the document pipeline runs them.
const (
	NameCleaner = "cleaner"
	NameChunker = "chunker"
)
