package main

import (
	"github.com/scott-cotton/cli"
)

const usageText = `runprompt - render and run .prompt files

Usage:
  runprompt render <file.prompt> [args...]   Print the rendered prompt
  runprompt run <file.prompt> [args...]      Render and send to the model

Input:
  Piped stdin is available as {{STDIN}}, arguments as {{ARGS}} and the
  first non-empty of the two as {{INPUT}}. A JSON object on either is
  merged into the variables.

Files:
  Paths and globs under files: in the front matter, and those given to
  run --read, are attached to the request. Binary files and directories
  are skipped. shell_tools entries are offered to the model as tools.

Environment:
  OPENAI_API_KEY              key for OpenAI-compatible endpoints
  OPENAI_BASE_URL, BASE_URL   OpenAI-compatible endpoint (or --base-url)
  <PROVIDER>_API_KEY          key for provider/model names without a base URL

Examples:
  echo "rust" | runprompt render hello.prompt
  runprompt run --model openai/gpt-4o-mini summarize.prompt < notes.txt
  runprompt run --read 'README.md,docs/*.md' summarize.prompt
  runprompt run --out answer.md --base-url http://localhost:11434/v1 ask.prompt "why?"`

// Root returns the root command for runprompt.
func Root() *cli.Command {
	return cli.NewCommand("runprompt").
		WithSynopsis("runprompt - render and run .prompt files").
		WithDescription(usageText).
		WithSubs(
			RenderCommand(),
			RunCommand(),
		)
}

type renderConfig struct {
	*cli.Command
	Out     string `cli:"name=out aliases=o desc='write the result to a file atomically'"`
	Verbose bool   `cli:"name=verbose aliases=v desc='log debug output to stderr'"`
}

// RenderCommand returns the render subcommand.
func RenderCommand() *cli.Command {
	cfg := &renderConfig{}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "render").
		WithSynopsis("render [--out file] <file.prompt> [args...] - Print the rendered prompt").
		WithOpts(opts...).
		WithRun(cfg.run)
}

type runConfig struct {
	*cli.Command
	Out       string `cli:"name=out aliases=o desc='write the result to a file atomically'"`
	Model     string `cli:"name=model aliases=m desc='model to use, overriding the front matter'"`
	BaseURL   string `cli:"name=base-url desc='OpenAI-compatible endpoint'"`
	MaxTokens int    `cli:"name=max-tokens desc='maximum tokens in the response'"`
	Read      string `cli:"name=read aliases=r desc='comma separated files or globs to attach'"`
	Verbose   bool   `cli:"name=verbose aliases=v desc='log debug output to stderr'"`
}

// RunCommand returns the run subcommand.
func RunCommand() *cli.Command {
	cfg := &runConfig{}
	opts, _ := cli.StructOpts(cfg)
	return cli.NewCommandAt(&cfg.Command, "run").
		WithSynopsis("run [--model m] [--base-url url] [--read files] [--out file] <file.prompt> [args...] - Render and complete").
		WithOpts(opts...).
		WithRun(cfg.run)
}
