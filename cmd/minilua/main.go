// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

// minilua is a command-line driver for the interpreter:
// it evaluates Lua sources, prints the source changes
// produced by force expressions,
// and optionally applies them back to the program text.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"
	"go4.org/xdgdir"
	"golang.org/x/term"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"

	"minilua.dev/pkg"
)

func main() {
	rootCommand := &cobra.Command{
		Use:           "minilua",
		Short:         "bidirectional Lua interpreter",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	showDebug := rootCommand.PersistentFlags().Bool("debug", false, "show debugging output")
	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogging(*showDebug)
		return nil
	}

	rootCommand.AddCommand(
		newRunCommand(),
		newReplCommand(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(*showDebug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

type runOptions struct {
	expr    string
	file    string
	apply   bool
	jsonOut bool
}

func newRunCommand() *cobra.Command {
	c := &cobra.Command{
		Use:                   "run [options] [FILE]",
		Short:                 "evaluate a Lua source file",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(runOptions)
	c.Flags().StringVar(&opts.expr, "expr", "", "evaluate the Lua chunk `expr` instead of a file")
	c.Flags().BoolVar(&opts.apply, "apply", false, "apply the preferred source changes and rewrite the file")
	c.Flags().BoolVar(&opts.jsonOut, "json", false, "print source changes as JSON")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			opts.file = args[0]
		}
		return runRun(cmd.Context(), opts)
	}
	return c
}

func runRun(ctx context.Context, opts *runOptions) error {
	var source string
	switch {
	case opts.expr != "" && opts.file != "":
		return fmt.Errorf("can specify at most one of --expr or FILE")
	case opts.expr != "":
		source = opts.expr
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return err
		}
		source = string(data)
	default:
		return fmt.Errorf("a FILE argument or --expr is required")
	}

	in, parseResult := minilua.NewFromSource(source)
	if !parseResult.Ok() {
		return fmt.Errorf("parse: %s", strings.Join(parseResult.Errors, "; "))
	}

	result, err := in.Evaluate(ctx)
	if err != nil {
		return err
	}
	if !result.Value.IsNil() {
		fmt.Println(result.Value.ToString())
	}
	if result.SourceChange == nil {
		return nil
	}

	log.Debugf(ctx, "source changes: %v", result.SourceChange)
	edits := minilua.CollectFirstAlternative(result.SourceChange)
	if opts.jsonOut {
		out, err := json.Marshal(edits, json.Deterministic(true))
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("source changes: %v\n", result.SourceChange)
	}

	if !opts.apply {
		return nil
	}
	if _, err := in.ApplySourceChanges(edits); err != nil {
		return err
	}
	if opts.file != "" {
		if err := os.WriteFile(opts.file, []byte(in.SourceCode()), 0o666); err != nil {
			return err
		}
		log.Infof(ctx, "rewrote %s", opts.file)
	} else {
		fmt.Printf("new program: %s\n", in.SourceCode())
	}
	return nil
}

func newReplCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "repl",
		Short:         "interactively evaluate Lua chunks",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd.Context())
	}
	return c
}

func runRepl(ctx context.Context) error {
	in := minilua.New()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	history := openHistory(ctx)
	if history != nil {
		defer history.Close()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if history != nil {
			fmt.Fprintln(history, line)
		}

		if parseResult := in.Parse(line); !parseResult.Ok() {
			fmt.Fprintf(os.Stderr, "parse: %s\n", strings.Join(parseResult.Errors, "; "))
			continue
		}
		result, err := in.Evaluate(ctx)
		if err != nil {
			if errors.Is(err, ctx.Err()) && ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if !result.Value.IsNil() {
			fmt.Println(result.Value.ToString())
		}
		if result.SourceChange != nil {
			fmt.Printf("source changes: %v\n", result.SourceChange)
		}
	}
}

// openHistory appends REPL input to a history file
// under the user's cache directory.
func openHistory(ctx context.Context) *os.File {
	cacheDir := xdgdir.Cache.Path()
	if cacheDir == "" {
		return nil
	}
	path := filepath.Join(cacheDir, "minilua", "history")
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		log.Debugf(ctx, "repl history: %v", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		log.Debugf(ctx, "repl history: %v", err)
		return nil
	}
	return f
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "minilua: ", log.StdFlags, nil),
		})
	})
}
