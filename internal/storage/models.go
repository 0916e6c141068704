package storage

// RetrievedDocument is the read-side projection of an index entry plus its
// similarity score. It is constructed per query and never persisted.
type RetrievedDocument struct {
	Score    float32
	Title    string
	Content  string
	Source   string
	Link     string
	Category string
}

// CollectionInfo contains collection statistics for verification.
type CollectionInfo struct {
	PointsCount uint64
}
