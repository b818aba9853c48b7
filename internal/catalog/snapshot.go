package catalog

import (
	"strings"

	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// Snapshot is one loaded catalog: its documents, an id lookup and the index
type Snapshot struct {
	docs  []Document
	byID  map[string]int
	index *Index
}

// NewSnapshot builds documents and the search index from raw rows
func NewSnapshot(rows []Row) *Snapshot {
	return NewSnapshotFromDocuments(BuildDocuments(rows))
}

// NewSnapshotFromDocuments indexes already built documents
func NewSnapshotFromDocuments(docs []Document) *Snapshot {
	s := &Snapshot{
		docs:  docs,
		byID:  make(map[string]int, len(docs)),
		index: BuildIndex(docs),
	}

	for i, d := range docs {
		s.byID[d.ID] = i
	}

	return s
}

// Documents returns the documents in catalog order
func (s *Snapshot) Documents() []Document {
	return s.docs
}

// Len returns the document count
func (s *Snapshot) Len() int {
	return len(s.docs)
}

// Index returns the search index
func (s *Snapshot) Index() *Index {
	return s.index
}

// Lookup finds a document by exact id
func (s *Snapshot) Lookup(id string) (Document, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Document{}, false
	}

	return s.docs[i], true
}

// FindID matches pasted text against ids, ignoring case, accents and
// surrounding whitespace
func (s *Snapshot) FindID(text string) (Document, bool) {
	text = strings.TrimSpace(text)
	if doc, ok := s.Lookup(text); ok {
		return doc, true
	}

	needle := textnorm.Normalize(text)
	if needle == "" {
		return Document{}, false
	}

	for _, d := range s.docs {
		if textnorm.Normalize(d.ID) == needle {
			return d, true
		}
	}

	return Document{}, false
}

// Search is a shortcut for Index().Search
func (s *Snapshot) Search(query string, limit int) []Match {
	return s.index.Search(query, limit)
}
