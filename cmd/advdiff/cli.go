package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/logging"
	"github.com/hpungsan/advdiff/internal/mcp"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/report"
	"github.com/hpungsan/advdiff/internal/web"
)

// envOpener builds the operation environment for one command invocation.
type envOpener func(c *cli.Context) (ops.Env, func(), error)

// Output formats for the compare action.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatHTML     = "html"
	formatJSON     = "json"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open envOpener) *cli.App {
	app := &cli.App{
		Name:    "advdiff",
		Usage:   "Compare Adversarial SQuAD against the original SQuAD validation split",
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Value: ops.DefaultVariant, Usage: "Adversarial variant: " + strings.Join(ops.Variants, "|")},
			&cli.IntFlag{Name: "samples", Aliases: []string{"s"}, Value: ops.DefaultMaxSamples, Usage: "Number of changed records to print (0 disables samples)"},
			&cli.IntFlag{Name: "snippet-len", Usage: "Trailing context characters shown per sample (default from config, 400)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatText, Usage: "Output format: text|markdown|html|json"},
			&cli.StringFlag{Name: "color", Value: string(report.ColorAuto), Usage: "Colorize text output: auto|always|never"},
			&cli.StringFlag{Name: "original-file", Usage: "Read the original collection from a local JSON, JSONL or SQuAD file"},
			&cli.StringFlag{Name: "adversarial-file", Usage: "Read the adversarial collection from a local JSON, JSONL or SQuAD file"},
			&cli.BoolFlag{Name: "refresh", Usage: "Refetch collections even when cached"},
		}, globalFlags()...),
		Action: compareAction(open),
		Commands: []*cli.Command{
			cacheCmd(open),
			mcpCmd(open),
			serveCmd(open),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// globalFlags are read by every command through the context lineage.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "no-cache", Usage: "Do not read or write the local dataset cache"},
		&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS certificate verification for the dataset hub (this run only)"},
		&cli.StringFlag{Name: "log-level", Value: logging.DefaultLevel, Usage: "Diagnostic log level: debug|info|warn|error"},
	}
}

// compareAction runs the comparison and prints it in the requested format.
func compareAction(open envOpener) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() > 0 {
			return outputError(errors.NewInvalidRequest(fmt.Sprintf("unexpected argument %q", c.Args().First())))
		}
		format := c.String("format")
		switch format {
		case formatText, formatMarkdown, formatHTML, formatJSON:
		default:
			return outputError(errors.NewInvalidRequest(fmt.Sprintf("format must be one of text, markdown, html, json, got %q", format)))
		}
		mode, err := report.ParseColorMode(c.String("color"))
		if err != nil {
			return outputError(err)
		}

		env, cleanup, err := open(c)
		if err != nil {
			return outputError(err)
		}
		defer cleanup()

		input := ops.CompareInput{
			Variant:         c.String("dataset"),
			MaxSamples:      c.Int("samples"),
			SnippetLen:      c.Int("snippet-len"),
			OriginalFile:    c.String("original-file"),
			AdversarialFile: c.String("adversarial-file"),
			Refresh:         c.Bool("refresh"),
		}

		w := c.App.Writer
		if format != formatText {
			output, err := ops.Compare(c.Context, env, input, ops.Discard)
			if err != nil {
				return outputError(err)
			}
			switch format {
			case formatMarkdown:
				err = report.Markdown(w, output)
			case formatHTML:
				err = report.HTML(w, output, Version)
			default:
				err = outputJSON(w, output)
			}
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}

		console := report.NewConsole(w, mode)
		output, err := ops.Compare(c.Context, env, input, console)
		if err != nil {
			return outputError(err)
		}
		if err := console.Summary(output); err != nil {
			return outputError(errors.NewInternal(err))
		}
		return nil
	}
}

// cacheCmd creates the cache command group.
func cacheCmd(open envOpener) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or purge the local dataset cache",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached collections",
				Action: func(c *cli.Context) error {
					env, cleanup, err := open(c)
					if err != nil {
						return outputError(err)
					}
					defer cleanup()

					output, err := ops.CacheList(c.Context, env)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "purge",
				Usage: "Delete cached collections",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dataset", Usage: "Only purge collections of this dataset"},
					&cli.StringFlag{Name: "older-than", Usage: "Only purge collections fetched more than N days ago (e.g., 7d)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.CachePurgeInput{}

					if dataset := c.String("dataset"); dataset != "" {
						input.Dataset = &dataset
					}
					if olderThan := c.String("older-than"); olderThan != "" {
						days, err := parseDuration(olderThan)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.OlderThanDays = &days
					}

					env, cleanup, err := open(c)
					if err != nil {
						return outputError(err)
					}
					defer cleanup()

					output, err := ops.CachePurge(c.Context, env, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(open envOpener) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the comparison and cache tools over MCP (stdio)",
		Action: func(c *cli.Context) error {
			env, cleanup, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer cleanup()

			if unknown := mcp.ValidateDisabledTools(env.Config.DisabledTools); len(unknown) > 0 {
				env.Logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
			}
			if unknown := mcp.ValidateDisabledTypes(env.Config.DisabledTypes); len(unknown) > 0 {
				env.Logger.Warn("unknown types in disabled_types", zap.Strings("types", unknown))
			}

			if err := mcp.Run(env, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(open envOpener) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the report and cache pages over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7433, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 1 and 65535, got %d", port)))
			}

			env, cleanup, err := open(c)
			if err != nil {
				return outputError(err)
			}
			defer cleanup()

			srv, err := web.NewServer(env, Version, c.String("bind"), port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, env.Logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if aErr, ok := errors.As(err); ok {
		msg := aErr.Message
		if aErr.Code == errors.ErrInternal && aErr.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, aErr.Cause)
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", aErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
