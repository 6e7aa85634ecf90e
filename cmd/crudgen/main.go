package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/couchcryptid/crudgen-api/internal/generator"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// Globals are the inputs shared by every command.
type Globals struct {
	Model     string   `help:"Entity model file." default:"model.yml" env:"MODEL_FILE" type:"path"`
	ConfigDir string   `help:"Root directory of entity config groups." default:"gql_config" env:"CONFIG_DIR" type:"path" name:"config-dir"`
	Groups    []string `help:"Entity groups to load, in order. Default: every subdirectory." env:"ENTITY_GROUPS" sep:","`
	CutPolicy string   `help:"Which edge of a relationship cycle is cut." default:"prefer_reverse" env:"CYCLE_CUT_POLICY" enum:"prefer_reverse,closing_edge" name:"cut-policy"`
	LogLevel  string   `help:"Log level." default:"warn" env:"LOG_LEVEL" name:"log-level"`
}

func (g *Globals) build() (*schema.Build, error) {
	policy, err := schema.ParseCutPolicy(g.CutPolicy)
	if err != nil {
		return nil, err
	}
	gen := generator.New(generator.Source{
		ModelFile: g.Model,
		ConfigDir: g.ConfigDir,
		Groups:    g.Groups,
		CutPolicy: policy,
	}, g.logger(), nil)
	return gen.Build()
}

// logger writes to stderr so command output on stdout stays clean.
func (g *Globals) logger() *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(g.LogLevel)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type CLI struct {
	Globals

	SDL    SDLCmd    `cmd:"" name:"sdl" help:"Print the generated schema in GraphQL SDL."`
	Cycles CyclesCmd `cmd:"" help:"List relationship cycles and the edges cut to break them."`
	Check  CheckCmd  `cmd:"" help:"Generate the schema and report configuration problems."`
}

type SDLCmd struct {
	Out string `help:"Write to file instead of stdout." short:"o" type:"path"`
}

func (c *SDLCmd) Run(g *Globals) error {
	b, err := g.build()
	if err != nil {
		return err
	}
	sdl, err := b.SDL()
	if err != nil {
		return err
	}
	if c.Out == "" {
		_, err = io.WriteString(os.Stdout, sdl)
		return err
	}
	return os.WriteFile(c.Out, []byte(sdl), 0o644) //nolint:gosec // generated schema is not secret
}

type CyclesCmd struct{}

func (c *CyclesCmd) Run(g *Globals) error {
	b, err := g.build()
	if err != nil {
		return err
	}
	return writeCycles(os.Stdout, b)
}

func writeCycles(w io.Writer, b *schema.Build) error {
	if len(b.Warnings) == 0 {
		_, err := fmt.Fprintln(w, "no relationship cycles")
		return err
	}
	for _, warn := range b.Warnings {
		if _, err := fmt.Fprintln(w, warn.Error()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d edge(s) cut\n", b.Cuts.Len())
	return err
}

type CheckCmd struct {
	Strict bool `help:"Fail when any entity was skipped."`
}

var errProblems = errors.New("schema has problems")

func (c *CheckCmd) Run(g *Globals) error {
	b, err := g.build()
	if err != nil {
		return err
	}
	if _, err := b.SDL(); err != nil {
		return err
	}
	return writeCheck(os.Stdout, b, c.Strict)
}

func writeCheck(w io.Writer, b *schema.Build, strict bool) error {
	for _, p := range b.Problems {
		fmt.Fprintf(w, "problem: %v\n", p)
	}
	fmt.Fprintf(w, "%d entities, %d types, %d cut edges, %d problems\n",
		len(b.Entities), b.Registry.Len(), b.Cuts.Len(), len(b.Problems))
	if strict && len(b.Problems) > 0 {
		return errProblems
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("crudgen"),
		kong.Description("Generate and inspect the CRUD GraphQL schema of an entity model."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
