package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hesusruiz/hamlgo/haml"
	"github.com/hesusruiz/hamlgo/watcher"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// newLogger sets up the logging system
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var z *zap.Logger
	var err error

	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

// processFile compiles a single template and writes the HTML to outputFileName, or to w when
// there is no output file
func processFile(compiler *haml.Compiler, inputFileName string, outputFileName string, dryrun bool, w io.Writer) error {
	html, err := compiler.CompileFile(inputFileName)
	if err != nil {
		return err
	}

	// Do nothing if flag dryrun was specified
	if dryrun {
		return nil
	}

	if len(outputFileName) == 0 {
		_, err = io.WriteString(w, html)
		return err
	}
	return os.WriteFile(outputFileName, []byte(html), 0664)
}

// processDir compiles all templates in a directory tree, once or forever when watching
func processDir(c *cli.Context, compiler *haml.Compiler, cfg watcher.Config, sugar *zap.SugaredLogger) error {
	w := watcher.New(compiler, cfg, sugar)

	if c.Bool("once") {
		res := w.CompileChanged()
		fmt.Fprintf(c.App.Writer, "compiled %d files, %d failed\n", res.Compiled, res.Failed)
		if res.Failed > 0 {
			return cli.Exit(res.Err, res.Failed)
		}
		return nil
	}

	// Loop until interrupted, processing the templates when modified
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// process is the main entry point of the program
func process(c *cli.Context) error {

	sugar, err := newLogger(c.Bool("debug"))
	if err != nil {
		panic(err)
	}
	defer sugar.Sync()

	if !c.Args().Present() {
		return cli.Exit("no input file or directory provided", 1)
	}
	inputName := c.Args().First()

	// The output can be given as the second argument
	outputName := c.String("output")
	if len(outputName) == 0 {
		outputName = c.Args().Get(1)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	dialect := ""
	if c.Bool("jinja") {
		dialect = haml.Jinja2.String()
	}

	opts, err := buildOptions(cfg, compilerSettings{
		attrWrapper:    c.String("attr-wrapper"),
		format:         c.String("format"),
		dialect:        dialect,
		escapeAttrs:    c.Bool("escape-attrs"),
		cdata:          c.Bool("cdata"),
		allowPython:    c.Bool("allow-python"),
		debugTree:      c.Bool("debug-tree"),
		highlightStyle: c.String("style"),
		customTags:     c.StringSlice("tag"),
	}, sugar)
	if err != nil {
		return cli.Exit(err, 1)
	}
	compiler := haml.NewCompiler(opts)

	info, err := os.Stat(inputName)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if info.IsDir() {
		extension := c.String("extension")
		if !c.IsSet("extension") {
			extension = cfg.String("hamlgo.outputExtension", extension)
		}

		var inputExtensions []string
		for _, ext := range c.StringSlice("input-extension") {
			inputExtensions = append(inputExtensions, strings.Split(ext, ",")...)
		}

		return processDir(c, compiler, watcher.Config{
			InputDir:        inputName,
			OutputDir:       outputName,
			InputExtensions: inputExtensions,
			OutputExtension: extension,
			Refresh:         c.Duration("refresh"),
		}, sugar)
	}

	if c.Bool("watch") {
		// Watching a single file is watching its directory restricted to its extension
		if len(outputName) > 0 && filepath.Dir(outputName) != filepath.Dir(inputName) {
			sugar.Warnw("the output directory is the one of the input file when watching", "output", outputName)
		}
		return processDir(c, compiler, watcher.Config{
			InputDir:        filepath.Dir(inputName),
			InputExtensions: []string{filepath.Ext(inputName)},
			OutputExtension: c.String("extension"),
			Refresh:         c.Duration("refresh"),
		}, sugar)
	}

	if err := processFile(compiler, inputName, outputName, c.Bool("dryrun"), c.App.Writer); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func main() {

	app := &cli.App{
		Name:     "hamlgo",
		Version:  "v0.1.0",
		Compiled: time.Now(),
		Authors: []*cli.Author{
			{
				Name:  "Jesus Ruiz",
				Email: "hesus.ruiz@gmail.com",
			},
		},
		Usage:     "compile Haml templates into HTML with Django or Jinja2 tags",
		UsageText: "hamlgo [options] INPUT_FILE|INPUT_DIR [OUTPUT_FILE|OUTPUT_DIR]",
		Action:    process,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write html to `FILE` or directory (default is standard output for files, the input directory for directories)",
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Aliases: []string{"n"},
				Usage:   "do not generate output file, just process input file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "run in debug mode",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "watch the input for changes",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "compile the input directory once and exit, with the number of failures as exit code",
			},
			&cli.StringFlag{
				Name:  "config",
				Value: "hamlgo.yaml",
				Usage: "read configuration from `FILE`, when it exists",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "add a self-closing tag, as `NAME:ENDNAME`",
			},
			&cli.StringFlag{
				Name:  "attr-wrapper",
				Usage: "quote `CHAR` for attribute values, ' or \"",
			},
			&cli.BoolFlag{
				Name:  "jinja",
				Usage: "generate Jinja2 tags instead of Django tags",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output `FORMAT`: html5, html4 or xhtml",
			},
			&cli.BoolFlag{
				Name:  "escape-attrs",
				Usage: "HTML-escape attribute values",
			},
			&cli.BoolFlag{
				Name:  "cdata",
				Usage: "wrap the content of style and script filters in CDATA",
			},
			&cli.BoolFlag{
				Name:  "allow-python",
				Usage: "enable the :python filter, which runs arbitrary code",
			},
			&cli.StringFlag{
				Name:  "style",
				Usage: "chroma `STYLE` for the :highlight filter",
			},
			&cli.BoolFlag{
				Name:  "debug-tree",
				Usage: "print the node tree instead of HTML",
			},
			&cli.StringSliceFlag{
				Name:  "input-extension",
				Value: cli.NewStringSlice(watcher.DefaultInputExtensions...),
				Usage: "compile files with `EXT` in directory mode",
			},
			&cli.StringFlag{
				Name:  "extension",
				Value: ".html",
				Usage: "`EXT` of the compiled files in directory mode",
			},
			&cli.DurationFlag{
				Name:  "refresh",
				Value: 3 * time.Second,
				Usage: "time between checks for modified files when watching",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

}
