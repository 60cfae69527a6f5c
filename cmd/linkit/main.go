package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rgonek/linkit/linkit"
	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/parse"
	"github.com/rgonek/linkit/render"
)

const (
	formatJSON     = "json"
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

// app holds what commands share once the command line is parsed.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg fileConfig
	log *zap.Logger

	errWasHandled bool
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, log: zap.NewNop()}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:            "linkit",
		Usage:           "hyperlink identity tool for structured documents",
		HideHelpCommand: true,
		Writer:          a.stdout,
		ErrWriter:       a.stderr,
		Before:          a.before,
		ExitErrHandler:  a.exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log postfix passes and selector requests"},
			&cli.StringFlag{Name: "from", Usage: "input document `FORMAT` (json, html, markdown), detected from the file extension when omitted"},
		},
		Commands: []*cli.Command{
			{
				Name:      "normalize",
				Usage:     "Runs the postfixers over the whole document",
				ArgsUsage: "SOURCE",
				Action:    a.normalize,
			},
			{
				Name:      "link",
				Usage:     "Applies a link to a range of an element",
				ArgsUsage: "SOURCE",
				Action:    a.link,
				Flags: append(rangeFlags(),
					&cli.StringFlag{Name: "href", Required: true, Usage: "link target `URL`"},
					&cli.StringSliceFlag{Name: "attr", Usage: "link metadata `KEY=VALUE`, may be repeated"},
				),
			},
			{
				Name:      "unlink",
				Usage:     "Removes the link from a range of an element, or the whole link around a caret",
				ArgsUsage: "SOURCE",
				Action:    a.unlink,
				Flags:     rangeFlags(),
			},
			{
				Name:      "render",
				Usage:     "Renders the document as HTML",
				ArgsUsage: "SOURCE",
				Action:    a.render,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "normalize", Usage: "normalize before rendering"},
				},
			},
			{
				Name:      "check",
				Usage:     "Reports every link invariant the document breaks",
				ArgsUsage: "SOURCE",
				Action:    a.check,
			},
			{
				Name:   "dumpconfig",
				Usage:  "Dumps the active configuration (YAML)",
				Action: a.dumpConfig,
			},
		},
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "path", Required: true, Usage: "child index `PATH` of the element, e.g. 0.1"},
		&cli.IntFlag{Name: "start", Usage: "start `OFFSET` inside the element"},
		&cli.IntFlag{Name: "end", Value: -1, Usage: "end `OFFSET` inside the element, a caret at start when omitted"},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error
	if a.cfg, err = loadConfig(cmd.String("config")); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if a.log, err = newLogger(a.stderr, a.cfg.Logging.Level, cmd.Bool("debug")); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	a.log.Debug("Program started", zap.Strings("args", cmd.Args().Slice()))
	return ctx, nil
}

func (a *app) exitErrHandler(_ context.Context, _ *cli.Command, err error) {
	if err == nil {
		return
	}
	a.log.Error("Program ended with error", zap.Error(err))
	a.errWasHandled = true
}

func (a *app) normalize(_ context.Context, cmd *cli.Command) error {
	editor, err := a.editor(cmd)
	if err != nil {
		return err
	}
	batch, err := editor.Normalize()
	if err != nil {
		return err
	}
	a.log.Info("Document normalized", zap.Int("changes", len(batch.Changes)))
	return a.writeDoc(editor.Doc())
}

func (a *app) link(_ context.Context, cmd *cli.Command) error {
	editor, err := a.editor(cmd)
	if err != nil {
		return err
	}
	sel, err := selectionFlag(editor.Model(), cmd)
	if err != nil {
		return err
	}
	values, err := attrValues(cmd.StringSlice("attr"))
	if err != nil {
		return err
	}
	values[linkit.AttrHref] = cmd.String("href")

	a.report(editor.CommitIdentity(sel, values))
	return a.writeDoc(editor.Doc())
}

func (a *app) unlink(_ context.Context, cmd *cli.Command) error {
	editor, err := a.editor(cmd)
	if err != nil {
		return err
	}
	sel, err := selectionFlag(editor.Model(), cmd)
	if err != nil {
		return err
	}
	a.report(editor.RemoveIdentity(sel))
	return a.writeDoc(editor.Doc())
}

func (a *app) render(_ context.Context, cmd *cli.Command) error {
	editor, err := a.editor(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("normalize") {
		if _, err := editor.Normalize(); err != nil {
			return err
		}
	}
	out, err := render.Document(editor.Doc())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, out)
	return err
}

func (a *app) check(_ context.Context, cmd *cli.Command) error {
	editor, err := a.editor(cmd)
	if err != nil {
		return err
	}
	violations := multierr.Errors(editor.Check())
	for _, violation := range violations {
		if _, err := fmt.Fprintln(a.stdout, violation); err != nil {
			return err
		}
	}
	if len(violations) > 0 {
		return fmt.Errorf("document breaks %d link invariants", len(violations))
	}
	a.log.Info("Document is consistent")
	return nil
}

func (a *app) dumpConfig(_ context.Context, _ *cli.Command) error {
	data, err := dumpConfig(a.cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}
	_, err = a.stdout.Write(data)
	return err
}

func (a *app) report(result linkit.Result) {
	for _, w := range result.Warnings {
		a.log.Warn("Request not applied",
			zap.String("type", string(w.Type)), zap.String("node", w.NodeType), zap.String("message", w.Message))
	}
	a.log.Info("Request finished",
		zap.String("outcome", string(result.Outcome)), zap.Int("changes", len(result.Batch.Changes)))
}

func (a *app) editor(cmd *cli.Command) (*linkit.Editor, error) {
	doc, err := a.readDoc(cmd)
	if err != nil {
		return nil, err
	}
	editor, err := linkit.New(doc, a.cfg.Engine, linkit.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("unable to create editor: %w", err)
	}
	return editor, nil
}

func (a *app) readDoc(cmd *cli.Command) (model.Doc, error) {
	if cmd.NArg() < 1 {
		return model.Doc{}, fmt.Errorf("missing SOURCE argument")
	}
	name := cmd.Args().First()

	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return model.Doc{}, fmt.Errorf("unable to read '%s': %w", name, err)
	}

	switch format := inputFormat(name, cmd.String("from")); format {
	case formatJSON:
		var doc model.Doc
		if err := json.Unmarshal(data, &doc); err != nil {
			return model.Doc{}, fmt.Errorf("unable to parse '%s': %w", name, err)
		}
		return doc, nil
	case formatHTML:
		return parse.HTML(bytes.NewReader(data))
	case formatMarkdown, "md":
		return parse.Markdown(data)
	default:
		return model.Doc{}, fmt.Errorf("unknown input format %q (allowed: json, html, markdown)", format)
	}
}

func (a *app) writeDoc(doc model.Doc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to format document: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

func inputFormat(name, from string) string {
	if from != "" {
		return strings.ToLower(from)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return formatHTML
	case ".md", ".markdown":
		return formatMarkdown
	default:
		return formatJSON
	}
}

// parsePath reads a child index path such as "0.1" or "0,1".
func parsePath(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' || r == '/' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty path %q", s)
	}
	path := make([]int, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid path %q: bad index %q", s, field)
		}
		path = append(path, idx)
	}
	return path, nil
}

func selectionFlag(m *model.Model, cmd *cli.Command) (model.Selection, error) {
	path, err := parsePath(cmd.String("path"))
	if err != nil {
		return model.Selection{}, err
	}
	parent, err := m.NodeAt(path...)
	if err != nil {
		return model.Selection{}, err
	}
	start, end := cmd.Int("start"), cmd.Int("end")
	if end < 0 {
		end = start
	}
	r, err := model.NewRange(
		model.Position{Parent: parent, Offset: start},
		model.Position{Parent: parent, Offset: end},
	)
	if err != nil {
		return model.Selection{}, err
	}
	return model.NewSelection(r), nil
}

func attrValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs)+1)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected KEY=VALUE", pair)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := a.command().Run(ctx, os.Args)
	stop()
	if err != nil {
		if !a.errWasHandled {
			fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
		}
		os.Exit(1)
	}
}
