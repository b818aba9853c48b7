package storage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyleking/catalog-chat/internal/catalog"
	apperrors "github.com/kyleking/catalog-chat/internal/errors"
)

const datasourcesQuery = `
	SELECT identificador_tabela,
		   titulo_tabela,
		   descricao_tabela,
		   categoria_informacao,
		   classe_maior,
		   sub_classe_maior,
		   classe_menor,
		   ano_elaboracao,
		   fonte_dados,
		   palavras_chave,
		   colunas_tabela::text,
		   is_ativo
	FROM public.datasources
	ORDER BY identificador_tabela`

// PostgresCatalog reads catalog rows straight from the datasources table
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog opens a connection pool for dsn
func NewPostgresCatalog(ctx context.Context, dsn string) (*PostgresCatalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to create postgres pool")
	}

	return &PostgresCatalog{pool: pool}, nil
}

// FetchRows implements catalog.Source
func (p *PostgresCatalog) FetchRows(ctx context.Context) ([]catalog.Row, error) {
	rows, err := p.pool.Query(ctx, datasourcesQuery)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to query datasources")
	}

	scanned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (datasourceRow, error) {
		var d datasourceRow
		err := row.Scan(
			&d.ID, &d.Title, &d.Description, &d.Category,
			&d.MajorClass, &d.MajorSubclass, &d.MinorClass,
			&d.Year, &d.Source, &d.Keywords, &d.Columns, &d.Active,
		)

		return d, err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeCatalog, "failed to read datasources")
	}

	out := make([]catalog.Row, 0, len(scanned))
	for _, d := range scanned {
		out = append(out, d.toRow())
	}

	return out, nil
}

// Close releases the pool
func (p *PostgresCatalog) Close() {
	p.pool.Close()
}

// datasourceRow mirrors the nullable columns of public.datasources
type datasourceRow struct {
	ID            *string
	Title         *string
	Description   *string
	Category      *string
	MajorClass    *string
	MajorSubclass *string
	MinorClass    *string
	Year          *int
	Source        *string
	Keywords      *string
	Columns       *string
	Active        *bool
}

func (d datasourceRow) toRow() catalog.Row {
	row := catalog.Row{
		ID:            deref(d.ID),
		Title:         deref(d.Title),
		Description:   deref(d.Description),
		Category:      deref(d.Category),
		MajorClass:    deref(d.MajorClass),
		MajorSubclass: deref(d.MajorSubclass),
		MinorClass:    deref(d.MinorClass),
		Year:          d.Year,
		Keywords:      deref(d.Keywords),
		Active:        d.Active,
	}

	if src := strings.TrimSpace(deref(d.Source)); src != "" {
		row.Source = &src
	}

	if cols := strings.TrimSpace(deref(d.Columns)); cols != "" && json.Valid([]byte(cols)) {
		row.Columns = json.RawMessage(cols)
	}

	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
