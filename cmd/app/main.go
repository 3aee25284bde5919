package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/apperr"
	pkgconfig "github.com/starford/quire/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// printThemes writes the theme list shown with usage errors.
func printThemes(w io.Writer, cfg *internal.Config) {
	fmt.Fprintln(w, "Available themes:")
	themes, _ := internal.Themes(internal.WithConfig(cfg))
	if len(themes) == 0 {
		fmt.Fprintf(w, "  No themes found in %s\n", cfg.Build.ThemesDir)
		return
	}
	for _, t := range themes {
		fmt.Fprintf(w, "  - %s\n", t)
	}
}

func usageError(cmd *cli.Command, cfg *internal.Config) error {
	fmt.Fprintf(os.Stderr, "Usage: %s %s %s\n", cmd.Root().Name, cmd.Name, cmd.ArgsUsage)
	printThemes(os.Stderr, cfg)
	return fmt.Errorf("%w: missing vault directory", apperr.ErrVaultNotFound)
}

// buildArgs holds "<vault> [output] [theme]". An output starting with "-"
// is treated as the theme and the output path is derived from the vault.
type buildArgs struct {
	vault, output, theme string
}

func parseBuildArgs(args []string) buildArgs {
	var a buildArgs
	if len(args) == 0 {
		return a
	}
	a.vault = args[0]
	if len(args) >= 2 && !strings.HasPrefix(args[1], "-") {
		a.output = args[1]
		if len(args) >= 3 {
			a.theme = args[2]
		}
		return a
	}
	if len(args) >= 2 {
		a.theme = strings.TrimLeft(args[1], "-")
	}
	return a
}

// serveArgs holds "<vault> [theme] [--port PORT] [--host HOST]". Options
// after the vault argument are parsed here because they follow positionals.
type serveArgs struct {
	vault, theme, host, port string
}

func parseServeArgs(args []string) (serveArgs, error) {
	var a serveArgs
	if len(args) == 0 {
		return a, nil
	}
	a.vault = args[0]
	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case (arg == "--port" || arg == "--host") && i+1 < len(args):
			if arg == "--port" {
				a.port = args[i+1]
			} else {
				a.host = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "-"):
			return a, fmt.Errorf("unknown argument: %s", arg)
		default:
			a.theme = arg
		}
	}
	return a, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidPort, s)
	}
	return port, nil
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	args := parseBuildArgs(cmd.Args().Slice())
	if args.vault == "" || strings.HasPrefix(args.vault, "-") {
		return usageError(cmd, cfg)
	}
	cfg.Vault.Path = args.vault
	if args.output != "" {
		cfg.Build.Output = args.output
	}
	if args.theme != "" {
		cfg.Build.Theme = args.theme
	}

	snap, err := internal.Build(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	fmt.Printf("Site built: %s (%d pages, theme %s)\n", snap.OutputDir, len(snap.Pages), snap.Theme)
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	args, err := parseServeArgs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if args.vault == "" {
		return usageError(cmd, cfg)
	}
	cfg.Vault.Path = args.vault
	if args.theme != "" {
		cfg.Build.Theme = args.theme
	}

	host, port := cmd.String("host"), cmd.String("port")
	if args.host != "" {
		host = args.host
	}
	if args.port != "" {
		port = args.port
	}
	if host != "" {
		cfg.App.HTTP.Host = host
	}
	if port != "" {
		if cfg.App.HTTP.Port, err = parsePort(port); err != nil {
			return err
		}
	}

	err = internal.Serve(ctx,
		internal.WithConfig(cfg),
		internal.WithConfigFile(cmd.String("config")),
	)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func themesAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printThemes(os.Stdout, cfg)
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() == 0 {
		return usageError(cmd, cfg)
	}
	cfg.Vault.Path = cmd.Args().First()

	// stdout carries the MCP protocol.
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "quire",
		Usage: "Publish an Obsidian vault as a static website",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "quire.yaml",
				Value:       "quire.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			// "build <vault> --dark" names a theme, not a flag.
			{
				Name:            "build",
				Usage:           "Build the site once",
				ArgsUsage:       "<vault_dir> [output_dir] [theme_name]",
				SkipFlagParsing: true,
				Action:          buildAction,
			},
			{
				Name:      "serve",
				Usage:     "Build, serve and rebuild on change",
				ArgsUsage: "<vault_dir> [theme_name] [--port PORT] [--host HOST]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "Port to serve on (default: 8000)"},
					&cli.StringFlag{Name: "host", Usage: "Host to bind to (default: localhost)"},
				},
				Action: serveAction,
			},
			{
				Name:   "themes",
				Usage:  "List available themes",
				Action: themesAction,
			},
			{
				Name:      "mcp",
				Usage:     "Serve vault tools over MCP on stdio",
				ArgsUsage: "<vault_dir>",
				Action:    mcpAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
