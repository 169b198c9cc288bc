package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/natefinch/atomic"
	"github.com/scott-cotton/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/dago-node-prompt/internal/llm"
	"github.com/aescanero/dago-node-prompt/internal/prompt"
)

const (
	beforeTimeout    = 30 * time.Second
	defaultMaxTokens = 4096
)

func (cfg *renderConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: render requires a prompt file", cli.ErrUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	r, err := renderFile(ctx, args[0], args[1:], nil, cc.In, logger)
	if err != nil {
		return fail(err)
	}
	return fail(emit(cc.Out, cfg.Out, r.Text))
}

func (cfg *runConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: run requires a prompt file", cli.ErrUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	r, err := renderFile(ctx, args[0], args[1:], splitList(cfg.Read), cc.In, logger)
	if err != nil {
		return fail(err)
	}

	reply, err := completeText(ctx, r, completeOptions{
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Getenv:    os.Getenv,
	}, logger)
	if err != nil {
		return fail(err)
	}
	return fail(emit(cc.Out, cfg.Out, reply))
}

// rendered is a prompt file rendered for one run
type rendered struct {
	Doc   *prompt.Document
	Text  string
	Files []llm.Attachment
}

// renderFile loads the prompt at path, renders it with the given arguments
// and stdin, and reads its files: plus the extra read patterns
func renderFile(ctx context.Context, path string, args, read []string, stdin io.Reader, logger *zap.Logger) (*rendered, error) {
	doc, err := prompt.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, warning := range doc.Warnings {
		color.New(color.FgYellow).Fprintf(os.Stderr, "runprompt: warning: %s\n", warning)
	}

	input, err := readStdin(stdin)
	if err != nil {
		return nil, err
	}

	shell := prompt.NewShellRunner("", beforeTimeout, logger)
	builder := prompt.NewBuilder(shell, logger).WithFiles(true)
	vars, err := builder.Build(ctx, doc, prompt.Inputs{
		Stdin: input,
		Args:  args,
	})
	if err != nil {
		return nil, err
	}

	files, err := builder.ResolveFiles(doc, vars, read)
	if err != nil {
		return nil, err
	}

	text := doc.Template().Render(vars)
	logger.Debug("prompt rendered",
		zap.String("file", path),
		zap.Int("bytes", len(text)),
		zap.Int("files", len(files)),
	)
	return &rendered{Doc: doc, Text: text, Files: files}, nil
}

// readStdin reads piped input. A terminal yields no input.
func readStdin(in io.Reader) (string, error) {
	if in == nil {
		return "", nil
	}
	if f, ok := in.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

type completeOptions struct {
	Model     string
	BaseURL   string
	MaxTokens int
	Getenv    func(string) string
}

// completeText sends text to the model named by the flags or the document.
// With a base URL every model goes to that OpenAI-compatible endpoint;
// otherwise the provider prefix of the model picks the client and its
// <PROVIDER>_API_KEY.
func completeText(ctx context.Context, r *rendered, opts completeOptions, logger *zap.Logger) (string, error) {
	ref := r.Doc.Model
	if opts.Model != "" {
		ref = opts.Model
	}
	provider, model := llm.ParseModel(ref)
	if model == "" {
		return "", fmt.Errorf("no model given: set model in the front matter or pass --model")
	}

	baseURL := firstNonEmpty(opts.BaseURL, opts.Getenv("OPENAI_BASE_URL"), opts.Getenv("BASE_URL"))
	clientOpts := llm.Options{Provider: provider, BaseURL: baseURL}
	switch {
	case baseURL != "", provider == "" || provider == "openai":
		clientOpts.APIKey = opts.Getenv("OPENAI_API_KEY")
		if baseURL == "" {
			clientOpts.BaseURL = "https://api.openai.com/v1"
		}
	default:
		clientOpts.APIKey = opts.Getenv(strings.ToUpper(provider) + "_API_KEY")
	}

	client, err := llm.NewClient(clientOpts, logger)
	if err != nil {
		return "", err
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	req := llm.NewUserRequest(model, r.Text, maxTokens)
	req.JSON = r.Doc.Output.Format == "json"
	req.Attachments = r.Files
	req.Tools = r.Doc.Tools()

	resp, err := client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	logger.Debug("completion received",
		zap.String("model", model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return resp.Content, nil
}

// emit writes text to path atomically, or to w when no path is given
func emit(w io.Writer, path, text string) error {
	if path != "" {
		if err := atomic.WriteFile(path, strings.NewReader(text)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

// fail reports err in red on stderr and maps it to exit status 1
func fail(err error) error {
	if err == nil {
		return nil
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "runprompt: %v\n", err)
	return cli.ExitCodeErr(1)
}

// newLogger logs warnings to stderr, and everything when verbose
func newLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// splitList splits a comma separated flag value, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
