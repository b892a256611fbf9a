package model

// QueryKind selects how an EntityQuery resolves items
type QueryKind int

const (
	// QueryByIdentifier matches items whose Property equals Value exactly
	QueryByIdentifier QueryKind = iota
	// QueryByArticleTitle matches items linked from the Wiki article titled Value
	QueryByArticleTitle
)

func (k QueryKind) String() string {
	switch k {
	case QueryByIdentifier:
		return "identifier"
	case QueryByArticleTitle:
		return "article-title"
	default:
		return "unknown"
	}
}

// EntityQuery describes an exact-match lookup of knowledge-base items
type EntityQuery struct {
	Kind     QueryKind
	Property string // Identifier property for QueryByIdentifier, e.g. P1115
	Value    string // Identifier value or article title
	Wiki     string // Site the article belongs to, e.g. https://lt.wikipedia.org/
	Country  string // Optional P17 constraint for QueryByArticleTitle
	Class    string // Optional P31/P279* constraint for QueryByArticleTitle
}

// EntityRef is a resolved knowledge-base item
type EntityRef struct {
	ID     string
	Title  string
	Exists bool
}

// SubmitResult reports a successful statement submission
type SubmitResult struct {
	StatementID string
	RevisionID  int64
}
