package db

// KNNQuery asks for the K nearest hashes to Vector.
type KNNQuery struct {
	IndexName    string
	VectorField  string // default "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the server's answer to a KNN query.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Distance is the raw metric reported by the server; lower is closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
