package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-pageview"
	"github.com/goliatone/go-pageview/pkg/config"
	"github.com/goliatone/go-pageview/pkg/orchestrator"
	"github.com/goliatone/go-pageview/pkg/scope"
)

type blockList []string

func (b *blockList) String() string { return strings.Join(*b, ",") }

func (b *blockList) Set(value string) error {
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			*b = append(*b, name)
		}
	}
	return nil
}

type options struct {
	config    string
	layout    string
	dir       string
	vars      string
	template  string
	blocks    blockList
	output    string
	dumpScope bool
	verbose   bool
	pick      bool
	watch     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "config file (yaml, toml or jsonc)")
	flag.StringVar(&opts.layout, "layout", "", "layout path, overrides the config")
	flag.StringVar(&opts.dir, "dir", "", "template directory, overrides the config")
	flag.StringVar(&opts.vars, "vars", "", "per-call variables file (yaml, toml or json)")
	flag.StringVar(&opts.template, "template", "", "page template name, overrides page.template in -vars")
	flag.Var(&opts.blocks, "block", "render only these blocks (repeatable or comma separated)")
	flag.StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	flag.BoolVar(&opts.dumpScope, "dump-scope", false, "print the merged scope as JSON instead of rendering")
	flag.BoolVar(&opts.verbose, "v", false, "log resolution details to stderr")
	flag.BoolVar(&opts.pick, "pick", false, "choose the page template interactively")
	flag.BoolVar(&opts.watch, "watch", false, "re-render when templates change")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("pageview: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	site, err := pageview.NewSite(cfg, orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}

	vars := map[string]any{}
	if opts.vars != "" {
		if vars, err = config.LoadVars(opts.vars); err != nil {
			return err
		}
	}

	if opts.pick {
		name, err := pickTemplate(site)
		if err != nil {
			return err
		}
		opts.template = name
	}
	if opts.template != "" {
		vars[scope.PageKey] = withTemplate(vars[scope.PageKey], opts.template)
	}

	if opts.dumpScope {
		merged, err := site.Scope(ctx, vars)
		if err != nil {
			return err
		}
		return writeJSON(opts.output, merged)
	}

	if err := render(ctx, site, vars, opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	logger.Info("watching templates", "dir", site.TemplateDir())
	err = site.Watch(ctx, func(path string) {
		logger.Info("template changed", "path", path)
		if err := render(ctx, site, vars, opts); err != nil {
			log.Printf("pageview: %v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.config != "" {
		loaded, err := config.Load(opts.config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.layout != "" {
		cfg.Layout = opts.layout
	}
	if opts.dir != "" {
		cfg.TemplateDir = opts.dir
	}
	return cfg, nil
}

// withTemplate keeps any params already attached to the page in the vars
// file and swaps only its template name.
func withTemplate(page any, name string) map[string]any {
	out := map[string]any{}
	if m, ok := page.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	out[scope.TemplateKey] = name
	return out
}

func pickTemplate(site *pageview.Site) (string, error) {
	names, err := site.Resolver().List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no templates in %s", site.TemplateDir())
	}

	var choice string
	prompt := &survey.Select{
		Message: "Page template:",
		Options: names,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

func render(ctx context.Context, site *pageview.Site, vars map[string]any, opts options) error {
	if len(opts.blocks) == 0 {
		out, err := site.RenderDocumentToString(ctx, vars)
		if err != nil {
			return err
		}
		return writeOutput(opts.output, out)
	}

	name, ok := scope.TemplateNameOf(vars)
	if !ok {
		return fmt.Errorf("-block needs a page template (use -template or page.template in -vars)")
	}
	blocks, err := site.RenderBlocks(ctx, name, vars, opts.blocks...)
	if err != nil {
		return err
	}
	if len(opts.blocks) == 1 {
		return writeOutput(opts.output, blocks[opts.blocks[0]])
	}

	var b strings.Builder
	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "<!-- block %s -->\n%s\n", k, blocks[k])
	}
	return writeOutput(opts.output, b.String())
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scope: %w", err)
	}
	return writeOutput(path, string(data))
}

func writeOutput(path, content string) error {
	if path == "" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "written to %s\n", path)
	return nil
}
