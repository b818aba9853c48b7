package conversation

import "github.com/kyleking/catalog-chat/internal/catalog"

// ReplyKind tells the renderer how to present a reply
type ReplyKind string

const (
	KindText        ReplyKind = "text"
	KindSuggestions ReplyKind = "suggestions"
	KindDetails     ReplyKind = "details"
	KindPreview     ReplyKind = "preview"
	KindResult      ReplyKind = "result"
	KindError       ReplyKind = "error"
)

// Reply is one assistant message
type Reply struct {
	Kind ReplyKind
	Text string

	// Suggestions are the tables offered for selection, set for KindSuggestions
	Suggestions []catalog.Suggestion
	// Rows is the result preview returned by the backend, set for KindResult
	Rows []map[string]interface{}
	// Prompts are inputs the user can send next
	Prompts []string
}

func textReply(text string, prompts []string) Reply {
	return Reply{Kind: KindText, Text: text, Prompts: prompts}
}

func errorReply(text string, prompts []string) Reply {
	return Reply{Kind: KindError, Text: text, Prompts: prompts}
}

const (
	msgGreeting = "Olá! Posso te ajudar a encontrar tabelas no catálogo e montar consultas.\n\n" +
		"Descreva o que você procura (tema, palavra-chave, ano, fonte) e eu sugiro as opções mais próximas.\n\n" +
		"Dica: você também pode digitar o título ou o identificador_tabela para selecionar direto."

	msgReset = "Recomeçando.\n\n" +
		"Descreva o que você procura no catálogo (tema, recorte, ano, fonte).\n\n" +
		"Dica: você pode digitar o título ou o identificador_tabela para selecionar direto."

	msgHelp = "Eu te ajudo a:\n" +
		"1) buscar tabelas no catálogo\n" +
		"2) selecionar uma tabela\n" +
		"3) montar a consulta passo a passo (filtros, group by, agregações, order by e limit)\n\n" +
		"Exemplos:\n" +
		"- mineração\n" +
		"- usar 1200_ce_atividade_mineracao_2021_pol\n" +
		"- detalhar\n" +
		"- todas as colunas\n" +
		"- colunas: processo, ano, area_ha\n" +
		"- filtro: area_ha >= 1\n" +
		"- executar agora (após filtros)\n" +
		"- preview\n" +
		"- executar\n"

	msgUnknownCommand = "Não entendi esse comando.\n\n" +
		"Exemplos válidos:\n" +
		"- todas as colunas\n" +
		"- colunas: processo, ano, area_ha\n" +
		"- filtro: area_ha >= 1\n" +
		"- agrupar por: uf\n" +
		"- agregar: sum(area_ha) como area_total\n" +
		"- ordenar por: area_ha desc\n" +
		"- limit: 20\n" +
		"- preview\n" +
		"- executar\n" +
		"- executar agora\n" +
		"- pular\n" +
		"- nova consulta\n"

	msgBackToCatalog   = "Certo, vamos escolher outra tabela. Descreva o que você quer encontrar no catálogo."
	msgNoTableForQuery = "Ainda não há tabela selecionada. Primeiro selecione uma tabela no catálogo."
	msgNoTable         = "Ainda não há tabela selecionada."
	msgNoPreviewTable  = "Ainda não há uma tabela selecionada para montar consulta."
	msgNoExecuteTable  = "Antes de executar, selecione uma tabela e monte a consulta."
	msgSelectFailed    = "Não consegui identificar exatamente qual tabela você quer usar.\n" +
		"Me dê mais um detalhe (tema/ano/fonte) e eu mostro opções."
	msgDetailsFailed = "Não consegui identificar qual tabela você quer detalhar.\n" +
		"Você pode colar o id/título ou selecionar uma opção exibida."
	msgMissingDoc = "Não encontrei os detalhes dessa tabela no índice."
	msgAmbiguous  = "Encontrei mais de uma tabela parecida. Selecione uma ou escreva \"usar <id>\"."
	msgResults    = "Encontrei opções próximas. Selecione uma ou refine (ano/categoria/fonte)."
	msgRefined    = "Filtrei as opções anteriores. Selecione uma ou refine mais."
	msgNoResults  = "Não achei nada bem próximo. Me dá mais uma pista:\n" +
		"- tema (ex.: mineração, biodiversidade, UC...)\n" +
		"- ano\n" +
		"- fonte\n"
	msgUpdated       = "Ok. Atualizei a consulta. Quer um preview ou executar?"
	msgExecuted      = "Ok. Consulta executada."
	msgAskNewQuery   = "Você quer fazer uma nova consulta?\n- \"nova consulta\" (mesma tabela)\n- \"trocar tabela\""
	msgRestartFailed = "Houve um erro ao executar. Vamos reconstruir a consulta do zero."
	msgRestartError  = "O backend retornou erro. Vamos reconstruir a consulta do zero."
	msgQueryRestart  = "Recomeçando a consulta."
	msgExplainOn     = "Explicação ativada: as próximas execuções pedem a explicação da consulta."
	msgExplainOff    = "Explicação desativada."

	reasonAmbiguous = "nome/título parecido"
)
