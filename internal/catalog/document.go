// Package catalog turns raw catalog rows into searchable documents and
// provides the full-text index, match explanations, refinement facets and
// the sources the rows are loaded from.
package catalog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/kyleking/catalog-chat/internal/logging"
	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// PathSeparator joins the category levels of a document path
const PathSeparator = " > "

var htmlTagRe = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// Row is one raw catalog entry as served by the catalog endpoint
type Row struct {
	ID            string          `json:"identificador_tabela" db:"identificador_tabela"`
	Title         string          `json:"titulo_tabela"        db:"titulo_tabela"`
	Description   string          `json:"descricao_tabela"     db:"descricao_tabela"`
	Category      string          `json:"categoria_informacao" db:"categoria_informacao"`
	MajorClass    string          `json:"classe_maior"         db:"classe_maior"`
	MajorSubclass string          `json:"sub_classe_maior"     db:"sub_classe_maior"`
	MinorClass    string          `json:"classe_menor"         db:"classe_menor"`
	Year          *int            `json:"ano_elaboracao"       db:"ano_elaboracao"`
	Source        *string         `json:"fonte_dados"          db:"fonte_dados"`
	Keywords      string          `json:"palavras_chave"       db:"palavras_chave"`
	Columns       json.RawMessage `json:"colunas_tabela"       db:"colunas_tabela"`
	Active        *bool           `json:"is_ativo"             db:"is_ativo"`
}

// Document is the derived, immutable view of an active row
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Path        string   `json:"path,omitempty"`
	Year        int      `json:"year,omitempty"`
	Source      string   `json:"source,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	SearchText  string   `json:"-"`
}

// Category returns the first path segment
func (d Document) Category() string {
	category, _, _ := strings.Cut(d.Path, PathSeparator)
	return strings.TrimSpace(category)
}

// BuildDocuments converts rows into documents. Rows explicitly marked
// inactive are dropped, as are rows without an id and repeated ids after the
// first occurrence. Malformed optional fields degrade to empty values.
func BuildDocuments(rows []Row) []Document {
	docs := make([]Document, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		if row.Active != nil && !*row.Active {
			continue
		}

		id := strings.TrimSpace(row.ID)
		if id == "" {
			logging.WithField("title", row.Title).Warn("Skipping catalog row without id")
			continue
		}

		if _, dup := seen[id]; dup {
			logging.WithField("id", id).Warn("Skipping duplicate catalog id")
			continue
		}

		seen[id] = struct{}{}

		doc := Document{
			ID:          id,
			Title:       strings.TrimSpace(row.Title),
			Description: descriptionText(row.Description),
			Path:        buildPath(row),
			Keywords:    textnorm.Dedupe(textnorm.SplitList(row.Keywords)),
			Columns:     extractColumns(row.Columns),
		}

		if row.Year != nil {
			doc.Year = *row.Year
		}

		if row.Source != nil {
			doc.Source = strings.TrimSpace(*row.Source)
		}

		doc.SearchText = searchText(doc)
		docs = append(docs, doc)
	}

	return docs
}

func buildPath(row Row) string {
	var parts []string

	for _, p := range []string{row.Category, row.MajorClass, row.MajorSubclass, row.MinorClass} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, PathSeparator)
}

func searchText(doc Document) string {
	year := ""
	if doc.Year != 0 {
		year = strconv.Itoa(doc.Year)
	}

	return textnorm.Normalize(strings.Join([]string{
		doc.Title,
		doc.Description,
		strings.Join(doc.Keywords, " "),
		doc.Path,
		strings.Join(doc.Columns, " "),
		doc.Source,
		year,
		doc.ID,
	}, " "))
}

// descriptionText converts HTML descriptions to Markdown; plain text passes through
func descriptionText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !htmlTagRe.MatchString(raw) {
		return raw
	}

	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil {
		logging.WithError(err).Debug("Keeping raw HTML description")
		return raw
	}

	return strings.TrimSpace(md)
}

// extractColumns accepts a JSON array whose items are column names or objects
// carrying any of name, label, titulo, nome. A JSON string holding such an
// array is unwrapped once.
func extractColumns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var nested string
		if json.Unmarshal(raw, &nested) == nil && strings.HasPrefix(strings.TrimSpace(nested), "[") {
			return extractColumns(json.RawMessage(nested))
		}

		return nil
	}

	var cols []string

	for _, item := range items {
		var name string
		if json.Unmarshal(item, &name) == nil {
			cols = append(cols, name)
			continue
		}

		var obj map[string]interface{}
		if json.Unmarshal(item, &obj) != nil {
			continue
		}

		for _, key := range []string{"name", "label", "titulo", "nome"} {
			if v, ok := obj[key]; ok && v != nil {
				if s, ok := v.(string); ok {
					cols = append(cols, s)
				} else {
					cols = append(cols, strings.TrimSpace(jsonScalar(v)))
				}
			}
		}
	}

	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}

	return textnorm.Dedupe(out)
}

func jsonScalar(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return strings.Trim(string(data), `"`)
}
