package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/conversation"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/execution"
	"github.com/kyleking/catalog-chat/internal/formatter"
	"github.com/kyleking/catalog-chat/internal/remote"
	"github.com/kyleking/catalog-chat/internal/testutil"
)

type countingIndicator struct {
	starts, stops int
}

func (c *countingIndicator) Start() { c.starts++ }
func (c *countingIndicator) Stop()  { c.stops++ }

func script(lines ...string) *scriptReader {
	return newScriptReader(io.NopCloser(strings.NewReader(strings.Join(lines, "\n"))))
}

func TestScriptReader(t *testing.T) {
	r := script("# comentario", "", "  ucs_federais  ", "sair")

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ucs_federais", line)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "sair", line)

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestChatLoop_SelectAndExecute(t *testing.T) {
	backend := &testutil.MockBackend{}
	backend.On("Execute", mock.Anything, execution.StrategyPrimary, mock.Anything).
		Return(&remote.Response{
			AnswerText:    "Encontrei 2 unidades.",
			ResultPreview: []map[string]interface{}{{"nome_uc": "Jamanxim"}, {"nome_uc": "Tapajós"}},
		}, nil).Once()

	recorder := &testutil.MemoryRecorder{}
	executor := execution.NewExecutor(backend, execution.WithRecorder(recorder))
	sess := conversation.NewSession(testutil.SampleSnapshot(), executor,
		conversation.WithConversationID(testutil.TestConversationID))

	busy := &countingIndicator{}

	ctx, cancel := context.WithTimeout(context.Background(), testutil.TestTimeout)
	defer cancel()

	var out bytes.Buffer

	err := chatLoop(ctx, sess,
		script("ucs_federais", "todas as colunas", "executar agora", "sair", "desmatamento"),
		&out, formatter.NewFormatter(false, 0), busy)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Catálogo carregado (5 tabelas ativas).")
	assert.Contains(t, text, "Tabela selecionada:")
	assert.Contains(t, text, "Encontrei 2 unidades.")
	assert.Contains(t, text, "Jamanxim")
	assert.NotContains(t, text, "Desmatamento PRODES")

	assert.Equal(t, 3, busy.starts)
	assert.Equal(t, busy.starts, busy.stops)

	backend.AssertExpectations(t)
	require.Len(t, recorder.Snapshot(), 1)
	assert.Equal(t, "ucs_federais", recorder.Snapshot()[0].TableID)
	assert.Equal(t, execution.StrategyPrimary, recorder.Snapshot()[0].Strategy)
	assert.Equal(t, conversation.StepReady, sess.Step())
}

func TestChatLoop_CatalogUnavailable(t *testing.T) {
	executor := execution.NewExecutor(&testutil.MockBackend{})
	sess := conversation.NewSession(nil, executor,
		conversation.WithCatalogError(errors.New(errors.ErrTypeNetwork, "connection refused")))

	var out bytes.Buffer

	err := chatLoop(context.Background(), sess, script("uso do solo"), &out,
		formatter.NewFormatter(false, 0), noopIndicator{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Não consegui carregar o catálogo")
	assert.Contains(t, out.String(), "connection refused")
}

func TestChatLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := conversation.NewSession(testutil.SampleSnapshot(), execution.NewExecutor(&testutil.MockBackend{}))
	busy := &countingIndicator{}

	var out bytes.Buffer

	require.NoError(t, chatLoop(ctx, sess, script("uso do solo"), &out, formatter.NewFormatter(false, 0), busy))
	assert.Zero(t, busy.starts)
}
