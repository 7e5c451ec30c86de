package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lokascript/loka/loka"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "serve":
		return serveCommand(args[2:])
	case "repl":
		return replCommand()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	selector := fs.String("me", "", "selector for the element the script is bound to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	source, err := readScript(fs.Args())
	if err != nil {
		return err
	}

	cfg, err := loka.LoadEnvConfig()
	if err != nil {
		return err
	}
	runtime, err := loka.NewRuntime(cfg.RuntimeConfig())
	if err != nil {
		return err
	}

	me := runtime.Document().Root()
	if *selector != "" {
		me = runtime.Document().Query(*selector)
		if me == nil {
			return fmt.Errorf("no element matches %q", *selector)
		}
	}

	result, _, err := runtime.Execute(context.Background(), source, me)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.IsNil() {
		fmt.Println(result.String())
	}
	return nil
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	source, err := readScript(fs.Args())
	if err != nil {
		return err
	}

	runtime := loka.MustNewRuntime(loka.Config{})
	if _, err := runtime.Compile(source); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	source, err := readScript(fs.Args())
	if err != nil {
		return err
	}

	runtime := loka.MustNewRuntime(loka.Config{})
	script, err := runtime.Compile(source)
	if err != nil {
		return err
	}
	meta := loka.Analyze(script)
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readScript(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("loka: script path required")
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(input), nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [-me <selector>] <script>")
	fmt.Fprintln(os.Stderr, "    compile a script, install its handlers, and run its top-level commands")
	fmt.Fprintln(os.Stderr, "  check <script>")
	fmt.Fprintln(os.Stderr, "    parse a script and report the first syntax error, if any")
	fmt.Fprintln(os.Stderr, "  analyze <script>")
	fmt.Fprintln(os.Stderr, "    print script metadata (events, commands, selectors, complexity) as JSON")
	fmt.Fprintln(os.Stderr, "  serve [-addr <addr>]")
	fmt.Fprintln(os.Stderr, "    start the HTTP compile/validate service")
	fmt.Fprintln(os.Stderr, "  repl")
	fmt.Fprintln(os.Stderr, "    start an interactive session against a scratch document")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
