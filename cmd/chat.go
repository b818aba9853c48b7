package cmd

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/ergochat/readline"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/conversation"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/execution"
	"github.com/kyleking/catalog-chat/internal/formatter"
	"github.com/kyleking/catalog-chat/internal/logging"
	"github.com/kyleking/catalog-chat/internal/prefs"
)

var exitWords = map[string]bool{"sair": true, "exit": true, "quit": true}

// lineReader yields user input one line at a time; io.EOF ends the chat
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

// busyIndicator is shown while a turn is being handled
type busyIndicator interface {
	Start()
	Stop()
}

type noopIndicator struct{}

func (noopIndicator) Start() {}
func (noopIndicator) Stop()  {}

func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive conversation",
		Description: `Search the catalog, select a table and build a query step by step.

Type "ajuda" for the available commands and "sair" to leave.
With --input, lines are read from a file ("-" for stdin) instead of the
interactive prompt.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Read messages from a file instead of the prompt"},
			&cli.BoolFlag{Name: "explain", Usage: "Ask the backend to explain its answers for this session"},
			&cli.StringFlag{Name: "strategy", Usage: "Execution strategy for this session: ask/fc/args or ask"},
		},
		Action: withConfig(runChat),
	}
}

func runChat(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	t := term.FromEnv()
	isTTY := t.IsTerminalOutput()

	width, _, err := t.Size()
	if err != nil {
		width = 0
	}

	var busy busyIndicator = noopIndicator{}
	if isTTY && !cmd.IsSet("input") {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " carregando..."
		busy = s
	}

	busy.Start()
	snap, catalogErr := loadCatalog(ctx, cfg)
	busy.Stop()

	if catalogErr != nil {
		logging.WithError(catalogErr).Error("Catalog load failed")
	}

	opts := []conversation.Option{conversation.WithTopK(cfg.Execution.TopK)}
	if catalogErr != nil {
		opts = append(opts, conversation.WithCatalogError(catalogErr))
	}

	store, err := openPrefs(cfg)
	if err != nil {
		logging.WithError(err).Warn("Preferences unavailable, changes will not be saved")
		store = nil
	} else {
		defer store.Close()
		opts = append(opts, conversation.WithSettingsSaver(store))
	}

	executor, cleanup, err := newChatExecutor(ctx, cmd, cfg, store)
	if err != nil {
		return err
	}
	defer cleanup()

	sess := conversation.NewSession(snap, executor, opts...)

	reader, err := newLineReader(cmd, cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	return chatLoop(ctx, sess, reader, writerOf(cmd), formatter.NewFormatter(isTTY, width), busy)
}

// newChatExecutor builds the executor with stored preferences, session flag
// overrides and, when enabled, the history recorder
func newChatExecutor(
	ctx context.Context,
	cmd *cli.Command,
	cfg *config.Config,
	store *prefs.Store,
) (*execution.Executor, func(), error) {
	settings := execution.Settings{Strategy: cfg.Execution.DefaultStrategy}

	if store != nil {
		loaded, err := store.Load(cfg.Execution.DefaultStrategy)
		if err != nil {
			logging.WithError(err).Warn("Failed to load preferences")
		} else {
			settings = loaded
		}
	}

	if cmd.IsSet("explain") {
		settings.Explain = cmd.Bool("explain")
	}

	if cmd.IsSet("strategy") {
		strategy := cmd.String("strategy")
		if !execution.ValidStrategy(strategy) {
			return nil, nil, errors.Newf(errors.ErrTypeValidation, "unknown strategy %q", strategy).
				WithSuggestion(fmt.Sprintf("Use %q or %q", execution.StrategyPrimary, execution.StrategyAsk))
		}

		settings.Strategy = strategy
	}

	opts := []execution.ExecutorOption{execution.WithSettings(settings)}
	cleanup := func() {}

	if cfg.Execution.RecordHistory {
		repo, err := initializeStorage(ctx, cfg)
		if err != nil {
			logging.WithError(err).Warn("Execution history unavailable")
		} else {
			opts = append(opts, execution.WithRecorder(repo))
			cleanup = func() { _ = repo.Close() }
		}
	}

	return execution.NewExecutor(newBackendClient(cfg), opts...), cleanup, nil
}

func newLineReader(cmd *cli.Command, cfg *config.Config) (lineReader, error) {
	if cmd.IsSet("input") {
		path := cmd.String("input")
		if path == "-" {
			return newScriptReader(io.NopCloser(readerOf(cmd))), nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeNotFound, "failed to open input %s", path)
		}

		return newScriptReader(f), nil
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.Storage.ReadlineLog,
		InterruptPrompt: "^C",
		EOFPrompt:       "sair",
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to start prompt")
	}

	return rl, nil
}

// scriptReader reads messages from a file; blank lines and lines starting
// with # are skipped
type scriptReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

func newScriptReader(rc io.ReadCloser) *scriptReader {
	return &scriptReader{scanner: bufio.NewScanner(rc), closer: rc}
}

func (r *scriptReader) ReadLine() (string, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		return line, nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (r *scriptReader) Close() error {
	return r.closer.Close()
}

// chatLoop prints the greeting and then one block of replies per input line
// until EOF, an exit word or cancellation
func chatLoop(
	ctx context.Context,
	sess *conversation.Session,
	reader lineReader,
	w io.Writer,
	f *formatter.Formatter,
	busy busyIndicator,
) error {
	printReplies(w, f, sess.Greeting())

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadLine()
		if stderrors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if stderrors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to read input")
		}

		if exitWords[strings.ToLower(strings.TrimSpace(line))] {
			return nil
		}

		busy.Start()
		replies := sess.Handle(ctx, line)
		busy.Stop()

		printReplies(w, f, replies)
	}
}

func printReplies(w io.Writer, f *formatter.Formatter, replies []conversation.Reply) {
	for _, r := range replies {
		fmt.Fprintln(w, f.FormatReply(r))
		fmt.Fprintln(w)
	}
}
