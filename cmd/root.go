// Package cmd implements the fleetnav command line.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetnav/app"
	"github.com/kilianp07/fleetnav/config"
	"github.com/kilianp07/fleetnav/infra/logger"
)

var cfgPath string

var serveFlags struct {
	addr     string
	graph    string
	logLevel string
	parallel bool
}

var rootCmd = &cobra.Command{
	Use:          "fleetnav",
	Short:        "Multi-agent fleet coordination service",
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Tick the fleet and serve the HTTP API and MQTT bridge (default command)",
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&serveFlags.addr, "addr", "", "override api.addr")
		c.Flags().StringVar(&serveFlags.graph, "graph", "", "override graph.path")
		c.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override logging.level")
		c.Flags().BoolVar(&serveFlags.parallel, "parallel", false, "update agents concurrently")
	}
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadServeConfig reads the configuration file and applies the flag
// overrides on top of it.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if serveFlags.addr != "" {
		cfg.API.Addr = serveFlags.addr
	}
	if serveFlags.graph != "" {
		cfg.Graph.Path = serveFlags.graph
	}
	if serveFlags.logLevel != "" {
		cfg.Logging.Level = serveFlags.logLevel
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Fleet.Parallel = serveFlags.parallel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
