package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/fairy-agent/internal/adapters/tui"
	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/config"
	"github.com/PabloGalante/fairy-agent/internal/observability"
	"github.com/PabloGalante/fairy-agent/internal/server"
)

var (
	cfg *config.Config

	personality string
	timeScale   float64
	seed        uint64
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "fairy",
	Short: "Fairy - a chat assistant that only pretends to think",
	Long: `Fairy answers from scripted personalities that type, hesitate and
reason on screen with human-like timing.

Configuration comes from FAIRY_CONFIG (a YAML file) and FAIRY_* variables;
flags override both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if cmd.Flags().Changed("personality") {
			cfg.Override = personality
		}
		if cmd.Flags().Changed("time-scale") {
			cfg.TimeScale = timeScale
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		return cfg.Validate()
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Fairy in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		// the terminal belongs to the chat screen; logs go to a file or nowhere
		var w io.Writer = io.Discard
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		observability.Setup(w, cfg.LogFormat, cfg.LogLevel)

		svc, err := server.NewService(cfg)
		if err != nil {
			return err
		}
		defer svc.Shutdown(context.Background())

		return tui.Run(cmd.Context(), svc)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)

		svc, err := server.NewService(cfg)
		if err != nil {
			return err
		}
		if _, err := svc.Bootstrap(cmd.Context()); err != nil {
			return err
		}
		return server.Serve(cmd.Context(), cfg, svc)
	},
}

var personalitiesCmd = &cobra.Command{
	Use:   "personalities",
	Short: "List the available personalities",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := logic.NewRegistry(logic.Options{DefaultID: cfg.DefaultPersonality})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tINTERRUPTS\tDEFAULT")
		for _, l := range registry.All() {
			_, passive := l.(logic.Passive)
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", l.ID(), l.Name(), passive, l.ID() == registry.Default().ID())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&personality, "personality", "p", "", "Force the personality of new threads")
	rootCmd.PersistentFlags().Float64Var(&timeScale, "time-scale", 1, "Speed up (>1) or slow down (<1) scripted delays")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed for reproducible personalities (0 = random)")

	chatCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while chatting")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(personalitiesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
