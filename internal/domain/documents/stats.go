package documents

// Stats summarises the corpus.
type Stats struct {
	TotalDocuments int64            `json:"total_documents"`
	TotalChunks    int64            `json:"total_chunks"`
	ByCountry      map[string]int64 `json:"by_country"`
	ByType         map[string]int64 `json:"by_type"`
	ByStatus       map[string]int64 `json:"by_status"`
}
