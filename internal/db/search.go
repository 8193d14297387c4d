package db

// Exclusion is a hard negative filter applied inside the store: documents
// whose TagField matches any of IDs never appear in results.
type Exclusion struct {
	TagField string
	IDs      []string
}

// IsEmpty reports whether the exclusion filters nothing.
func (e *Exclusion) IsEmpty() bool {
	return e == nil || len(e.IDs) == 0
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Exclude      *Exclusion
	ReturnFields []string
}

// WeightedTerm is a single lexical token with its sparse weight.
type WeightedTerm struct {
	Token  string
	Weight float64
}

// LexicalQuery is the input for weighted-term text search over a TEXT field.
// Terms come from a sparse vector; the store ranks by BM25 over the matched
// disjunction.
type LexicalQuery struct {
	IndexName    string
	TextField    string
	Terms        []WeightedTerm
	Exclude      *Exclusion
	TopK         int
	ReturnFields []string
}

// RangeQuery scans documents whose numeric field falls within [Min, Max].
// Used by the reaper to find expired casual requests.
type RangeQuery struct {
	IndexName    string
	NumericField string
	Min          float64
	Max          float64
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
