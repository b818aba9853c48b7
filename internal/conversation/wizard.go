package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/draft"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/execution"
	"github.com/kyleking/catalog-chat/internal/intent"
	"github.com/kyleking/catalog-chat/internal/logging"
)

// startWizard focuses doc and opens the wizard at SELECT with a fresh draft
func (s *Session) startWizard(doc catalog.Document) []Reply {
	s.selectedID = doc.ID
	s.lastSuggestions = []catalog.Suggestion{catalog.NewSuggestion(doc, "")}
	s.openWizard()

	text := "Tabela selecionada:\n\n" + tableSummary(doc) +
		"\n\n" + StepSelect.Question() +
		"Você também pode digitar \"pular\" nas próximas etapas.\n"

	return []Reply{textReply(text, selectPrompts(doc))}
}

// restartWizard discards the draft and reopens the wizard on the selected
// table. A non-empty reason is shown first.
func (s *Session) restartWizard(reason string) []Reply {
	if s.selectedID == "" {
		return []Reply{textReply(msgNoTable, catalogPrompts())}
	}

	doc, ok := s.snapshot.Lookup(s.selectedID)
	if !ok {
		doc = catalog.Document{ID: s.selectedID, Title: s.selectedID}
	}

	s.openWizard()

	var b strings.Builder
	if reason != "" {
		b.WriteString(reason + "\n\n")
	}

	b.WriteString("Vamos montar uma nova consulta para:\n\n")
	b.WriteString(tableSummary(doc))
	b.WriteString("\n\n" + StepSelect.Question())

	return []Reply{textReply(b.String(), selectPrompts(doc))}
}

func (s *Session) openWizard() {
	s.mode = intent.ModeQueryBuild
	s.step = StepSelect
	s.draft = draft.New()
}

func tableSummary(doc catalog.Document) string {
	title := doc.Title
	if title == "" {
		title = doc.ID
	}

	text := "• " + title + "\n"
	if doc.Year != 0 {
		text += fmt.Sprintf("• Ano: %d\n", doc.Year)
	}

	if len(doc.Columns) > 0 {
		text += fmt.Sprintf("\n\nColunas (%d):\n%s", len(doc.Columns), columnList(doc.Columns, maxListedCols))
	}

	return strings.TrimRight(text, "\n")
}

func columnList(cols []string, limit int) string {
	shown := cols
	if len(shown) > limit {
		shown = shown[:limit]
	}

	lines := make([]string, 0, len(shown)+1)
	for _, c := range shown {
		lines = append(lines, "- "+c)
	}

	if rest := len(cols) - len(shown); rest > 0 {
		lines = append(lines, fmt.Sprintf("- ... (+%d colunas)", rest))
	}

	return strings.Join(lines, "\n")
}

// sampleColumns returns the first n non-geometry columns, or the first n
// columns when every column is geometry
func sampleColumns(cols []string, n int) []string {
	var picked []string

	for _, c := range cols {
		if !geometryCols[strings.ToLower(c)] {
			picked = append(picked, c)
		}
	}

	if len(picked) == 0 {
		picked = cols
	}

	if len(picked) > n {
		picked = picked[:n]
	}

	return picked
}

func selectPrompts(doc catalog.Document) []string {
	columns := "colunas: processo, ano, area_ha"
	if sample := sampleColumns(doc.Columns, sampleCols); len(sample) > 0 {
		columns = "colunas: " + strings.Join(sample, ", ")
	}

	return []string{"todas as colunas", columns, "preview", "trocar tabela"}
}

// handleWizard interprets q as a wizard command. Global shortcuts come first,
// then the command grammar; text the grammar does not recognize goes to the
// intent classifier.
func (s *Session) handleWizard(ctx context.Context, q, normalized string) []Reply {
	cmd := draft.Parse(q)

	switch {
	case normalized == "executar agora":
		return s.execute(ctx)
	case normalized == "voltar" || normalized == "trocar tabela":
		return s.backToCatalog()
	case cmd.Kind == draft.CmdPreview:
		return s.preview()
	case cmd.Kind == draft.CmdExecute:
		return s.execute(ctx)
	case skipWords[normalized]:
		return s.advance()
	case cmd.Kind == draft.CmdSetExplain:
		return s.setExplain(cmd.Flag)
	case cmd.Kind == draft.CmdReset:
		return s.restartWizard(msgQueryRestart)
	case cmd.Kind == draft.CmdUnknown:
		return s.unknownCommand(ctx, q, cmd)
	case rejectedNumber(cmd):
		return []Reply{textReply(draft.MsgInvalidLimit, s.step.Prompts())}
	}

	s.draft = draft.Apply(s.draft, cmd)

	if s.step == StepReady {
		return []Reply{textReply(msgUpdated, readyPrompts())}
	}

	return s.advance()
}

// rejectedNumber reports a limit or offset the reducer would ignore
func rejectedNumber(cmd draft.Command) bool {
	switch cmd.Kind {
	case draft.CmdSetLimit:
		return cmd.Number <= 0
	case draft.CmdSetOffset:
		return cmd.Number < 0
	default:
		return false
	}
}

func (s *Session) advance() []Reply {
	s.step = s.step.Next()
	return []Reply{textReply(s.step.Question(), s.step.Prompts())}
}

func (s *Session) unknownCommand(ctx context.Context, q string, cmd draft.Command) []Reply {
	if cmd.Error != "" {
		return []Reply{textReply(cmd.Error, s.step.Prompts())}
	}

	res := intent.Classify(q, intent.Context{Mode: intent.ModeQueryBuild})

	switch res.Intent {
	case intent.Reset:
		return s.reset()
	case intent.Help:
		return s.help()
	case intent.Details:
		return s.details(q)
	case intent.SwitchTable:
		return s.backToCatalog()
	case intent.AskQuestion:
		if question, ok := interrogative(res.Question); ok {
			return s.ask(ctx, question)
		}

		return []Reply{textReply(msgUnknownCommand, s.step.Prompts())}
	default:
		return []Reply{textReply(msgUnknownCommand, s.step.Prompts())}
	}
}

var questionLabelRe = regexp.MustCompile(`(?i)^pergunta\s*:\s*(.*)$`)

// interrogative reports whether text reads as a question for the backend: a
// "pergunta:" label or a trailing question mark. The label is stripped.
func interrogative(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if m := questionLabelRe.FindStringSubmatch(text); m != nil {
		question := strings.TrimSpace(m[1])
		return question, question != ""
	}

	return text, strings.HasSuffix(text, "?")
}

func (s *Session) setExplain(on bool) []Reply {
	s.runner.SetExplain(on)

	if s.saver != nil {
		if err := s.saver.SaveExplain(on); err != nil {
			logging.WithError(err).Warn("Failed to save explain preference")
		}
	}

	text := msgExplainOff
	if on {
		text = msgExplainOn
	}

	return []Reply{textReply(text, s.step.Prompts())}
}

func (s *Session) preview() []Reply {
	if s.selectedID == "" {
		return []Reply{textReply(msgNoPreviewTable, catalogPrompts())}
	}

	return []Reply{{
		Kind:    KindPreview,
		Text:    "Prévia da consulta:\n\n" + draft.Preview(s.selectedID, s.draft),
		Prompts: s.step.Prompts(),
	}}
}

// execute validates the draft and submits it. On failure the wizard restarts
// on the same table; on success the wizard waits at READY.
func (s *Session) execute(ctx context.Context) []Reply {
	if s.selectedID == "" {
		return []Reply{textReply(msgNoExecuteTable, catalogPrompts())}
	}

	if err := draft.Validate(s.draft); err != nil {
		return []Reply{textReply(errors.UserMessage(err), readyPrompts())}
	}

	settings := s.runner.Settings()

	req, err := draft.BuildPayload(s.selectedID, s.draft, "", s.topK, settings.Explain, s.conversationID)
	if err != nil {
		return []Reply{errorReply(errors.UserMessage(err), readyPrompts())}
	}

	out, err := s.runner.Run(ctx, req)
	if err != nil {
		return s.executionFailed(err)
	}

	s.step = StepReady

	return []Reply{
		s.resultReply(out, []string{"nova consulta", "trocar tabela", "preview"}),
		textReply(msgAskNewQuery, []string{"nova consulta", "trocar tabela"}),
	}
}

func (s *Session) executionFailed(err error) []Reply {
	detail := errors.UserMessage(err)
	prompts := []string{"nova consulta", "trocar tabela"}

	if execution.IsTransport(err) {
		text := "Não consegui executar a consulta agora."
		if detail != "" {
			text += " Detalhes: " + detail
		}

		return append([]Reply{errorReply(text, prompts)}, s.restartWizard(msgRestartFailed)...)
	}

	return append([]Reply{errorReply("Não consegui executar a consulta: "+detail, prompts)},
		s.restartWizard(msgRestartError)...)
}

// ask sends a free-text question about the selected table together with the
// current draft, or a select-all draft when no columns were chosen yet. The
// wizard state is left as is.
func (s *Session) ask(ctx context.Context, question string) []Reply {
	d := s.draft
	if !d.Ready() {
		d = draft.Apply(d, draft.Command{Kind: draft.CmdSelectAll})
	}

	settings := s.runner.Settings()

	req, err := draft.BuildPayload(s.selectedID, d, question, s.topK, settings.Explain, s.conversationID)
	if err != nil {
		return []Reply{errorReply(errors.UserMessage(err), s.step.Prompts())}
	}

	out, err := s.runner.Run(ctx, req)
	if err != nil {
		if execution.IsTransport(err) {
			return []Reply{errorReply("Não consegui executar a consulta agora. Detalhes: "+errors.UserMessage(err),
				s.step.Prompts())}
		}

		return []Reply{errorReply(execution.Humanize(errors.UserMessage(err)), s.step.Prompts())}
	}

	return []Reply{s.resultReply(out, s.step.Prompts())}
}

func (s *Session) resultReply(out *execution.Outcome, prompts []string) Reply {
	text := out.AnswerText
	if text == "" {
		text = msgExecuted
	}

	return Reply{Kind: KindResult, Text: text, Rows: out.Preview, Prompts: prompts}
}
