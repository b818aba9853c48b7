package testutil

import (
	"encoding/json"

	"github.com/kyleking/catalog-chat/internal/catalog"
)

// RowOption is a functional option for configuring test catalog rows
type RowOption func(*catalog.Row)

// WithTitle sets the row title
func WithTitle(title string) RowOption {
	return func(r *catalog.Row) {
		r.Title = title
	}
}

// WithDescription sets the row description
func WithDescription(desc string) RowOption {
	return func(r *catalog.Row) {
		r.Description = desc
	}
}

// WithPath sets up to four category levels
func WithPath(levels ...string) RowOption {
	return func(r *catalog.Row) {
		targets := []*string{&r.Category, &r.MajorClass, &r.MajorSubclass, &r.MinorClass}
		for i, level := range levels {
			if i < len(targets) {
				*targets[i] = level
			}
		}
	}
}

// WithYear sets the elaboration year
func WithYear(year int) RowOption {
	return func(r *catalog.Row) {
		r.Year = &year
	}
}

// WithSource sets the data source
func WithSource(source string) RowOption {
	return func(r *catalog.Row) {
		r.Source = &source
	}
}

// WithKeywords sets the raw delimited keyword field
func WithKeywords(raw string) RowOption {
	return func(r *catalog.Row) {
		r.Keywords = raw
	}
}

// WithColumns sets the column descriptors; items may be strings or maps
func WithColumns(cols ...interface{}) RowOption {
	return func(r *catalog.Row) {
		data, _ := json.Marshal(cols)
		r.Columns = data
	}
}

// WithActive sets the explicit active flag
func WithActive(active bool) RowOption {
	return func(r *catalog.Row) {
		r.Active = &active
	}
}

// NewRow creates a catalog row with the given id and options
func NewRow(id string, opts ...RowOption) catalog.Row {
	row := catalog.Row{ID: id, Title: id}
	for _, opt := range opts {
		opt(&row)
	}

	return row
}

// SampleRows returns a small realistic catalog, including one inactive row
func SampleRows() []catalog.Row {
	return []catalog.Row{
		NewRow("uso_solo_2020",
			WithTitle("Uso do Solo 2020"),
			WithDescription("Mapeamento anual de uso e cobertura da terra."),
			WithPath("Território", "Uso e Cobertura"),
			WithYear(2020),
			WithSource("MapBiomas"),
			WithKeywords("uso do solo; cobertura; agricultura"),
			WithColumns("ano", "area_ha", "classe", "geom"),
		),
		NewRow("uso_solo_2021",
			WithTitle("Uso do Solo 2021"),
			WithDescription("Mapeamento anual de uso e cobertura da terra."),
			WithPath("Território", "Uso e Cobertura"),
			WithYear(2021),
			WithSource("MapBiomas"),
			WithKeywords("uso do solo; cobertura; agricultura"),
			WithColumns("ano", "area_ha", "classe", "geom"),
		),
		NewRow("mineracao_processos",
			WithTitle("Processos Minerários"),
			WithPath("Mineração", "Direitos Minerários"),
			WithYear(2022),
			WithSource("ANM"),
			WithKeywords("mineração|lavra|processos"),
			WithColumns(
				map[string]interface{}{"name": "processo"},
				map[string]interface{}{"name": "substancia", "label": "Substância"},
				map[string]interface{}{"name": "area_ha"},
				map[string]interface{}{"nome": "fase"},
			),
		),
		NewRow("ucs_federais",
			WithTitle("Unidades de Conservação Federais"),
			WithDescription("<p>Limites das <b>UCs</b> federais</p>"),
			WithPath("Biodiversidade", "Áreas Protegidas"),
			WithYear(2022),
			WithSource("ICMBio"),
			WithKeywords("unidades de conservação, áreas protegidas"),
			WithColumns("nome_uc", "categoria", "area_ha", "geometry"),
		),
		NewRow("desmatamento_prodes",
			WithTitle("Desmatamento PRODES"),
			WithPath("Meio Ambiente", "Desmatamento"),
			WithYear(2021),
			WithSource("INPE"),
			WithKeywords("desmatamento, amazônia"),
			WithColumns("ano", "area_km2", "estado"),
		),
		NewRow("legacy_table",
			WithTitle("Tabela Antiga"),
			WithActive(false),
		),
	}
}

// SampleSnapshot builds a snapshot over SampleRows
func SampleSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot(SampleRows())
}
