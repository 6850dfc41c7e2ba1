package qacache

// Reserved attribute keys. Caller metadata may not overwrite these.
const (
	AttrQuestion  = "question"
	AttrAnswer    = "answer"
	AttrUsecase   = "usecase"
	AttrTimestamp = "timestamp"
)

// SearchMatch is one ranked result of a similarity search. Score is a
// normalized similarity in [0,1], higher is more similar.
type SearchMatch struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Stats summarizes the state of the backing collection.
type Stats struct {
	CollectionName string `json:"collectionName"`
	TotalDocuments int64  `json:"totalDocuments"`
	EmbeddingModel string `json:"embeddingModel"`
}

// Config holds runtime knobs for a cache instance.
type Config struct {
	Collection     string
	EmbeddingModel string
}
