package conversation

import "fmt"

// Step is a stage of the query-building wizard
type Step int

const (
	StepSelect Step = iota
	StepWhere
	StepGroupBy
	StepAgg
	StepOrderBy
	StepLimit
	StepReady
)

var stepNames = map[Step]string{
	StepSelect:  "SELECT",
	StepWhere:   "WHERE",
	StepGroupBy: "GROUP_BY",
	StepAgg:     "AGG",
	StepOrderBy: "ORDER_BY",
	StepLimit:   "LIMIT",
	StepReady:   "READY",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Step(%d)", int(s))
}

// Next returns the following step. READY is terminal.
func (s Step) Next() Step {
	if s >= StepReady {
		return StepReady
	}

	return s + 1
}

// Prompts returns the suggested inputs shown while the wizard waits at s
func (s Step) Prompts() []string {
	switch s {
	case StepSelect:
		return []string{"todas as colunas", "colunas: processo, ano, area_ha", "preview", "trocar tabela"}
	case StepWhere:
		return []string{"filtro: ano = 2021", "filtro: area_ha >= 1", "pular", "executar agora", "preview"}
	case StepGroupBy:
		return []string{"agrupar por: uf", "agrupar por: uso", "pular", "preview"}
	case StepAgg:
		return []string{"agregar: sum(area_ha) como area_total", "agregar: count(*) como n", "pular", "preview"}
	case StepOrderBy:
		return []string{"ordenar por: area_ha desc", "ordenar por: ano asc", "pular", "preview"}
	case StepLimit:
		return []string{"limit: 20", "limit: 100", "pular", "preview", "executar"}
	default:
		return readyPrompts()
	}
}

// Question returns the wizard text that introduces s
func (s Step) Question() string {
	switch s {
	case StepWhere:
		return "Passo 2/6 - Filtros (WHERE):\n" +
			"Você quer filtrar alguma coluna?\n" +
			"Ex.: \"filtro: ano = 2021\" ou \"filtro: area_ha >= 1\"\n" +
			"Se não quiser, digite \"pular\".\n" +
			"Se quiser executar já, digite \"executar agora\"."
	case StepGroupBy:
		return "Passo 3/6 - Agrupamento (GROUP BY):\n" +
			"Você quer agrupar por alguma coluna?\n" +
			"Ex.: \"agrupar por: uf\"\n" +
			"Se não quiser, digite \"pular\"."
	case StepAgg:
		return "Passo 4/6 - Agregações (SUM/COUNT/AVG...):\n" +
			"Você quer adicionar alguma agregação?\n" +
			"Ex.: \"agregar: sum(area_ha) como area_total\"\n" +
			"Ou \"agregar: count(*) como n\"\n" +
			"Se não quiser, digite \"pular\"."
	case StepOrderBy:
		return "Passo 5/6 - Ordenação (ORDER BY):\n" +
			"Você quer ordenar por alguma coluna (ou alias)?\n" +
			"Ex.: \"ordenar por: area_ha desc\"\n" +
			"Se não quiser, digite \"pular\"."
	case StepLimit:
		return "Passo 6/6 - Limite (LIMIT):\n" +
			"Quantas linhas no máximo você quer retornar?\n" +
			"Ex.: \"limit: 20\"\n" +
			"Se não quiser ajustar, digite \"pular\"."
	case StepReady:
		return "Pronto ✅\n\n" +
			"Você pode:\n" +
			"- \"preview\" (ver SQL/consulta)\n" +
			"- \"executar\" (rodar no backend)\n" +
			"- \"nova consulta\" (recomeçar o wizard)\n" +
			"- \"trocar tabela\"\n"
	default:
		return "Passo 1/6 - Seleção de colunas:\n" +
			"Você quer consultar todas as colunas ou apenas algumas?\n" +
			"- \"todas as colunas\"\n" +
			"- \"colunas: a, b, c\"\n"
	}
}

func catalogPrompts() []string {
	return []string{"mineração", "biodiversidade", "unidades de conservação", "ano: 2022", "fonte: mapbiomas"}
}

func readyPrompts() []string {
	return []string{"preview", "executar", "nova consulta", "trocar tabela", "voltar"}
}
