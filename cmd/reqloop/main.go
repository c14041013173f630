package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqloop",
	Short: "Parse, edit, replay and loop cURL commands",
	Long: `ReqLoop turns cURL commands into editable requests, rebuilds them, and runs them
once or as a loop over sets of query, header, form and route values.

Run it as a WebSocket session server for an editor front end, or drive the same
engine from the command line.
`,
	SilenceUsage: true,
	RunE:         runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session server",
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file path")
	flags.StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.Bool("log-file-enable", false, "Enable file logging")
	flags.String("log-file-path", "", "Log file path")
	flags.StringP("output", "o", "", "Output mode (console, json)")
	flags.String("locale", "", "Locale for user facing messages (en, zh-CN)")
	flags.String("output-dir", "", "Directory receiving saved output")
	flags.Bool("silence", false, "Suppress the startup banner")
	flags.Bool("storage-enable", false, "Enable/disable run history")
	flags.String("storage-driver", "", "Run history driver (sqlite, memory)")
	flags.String("storage-path", "", "Run history database path")
	flags.Int("max-runs", 0, "Maximum runs a single loop may plan (0 = unlimited)")

	serveFlags := serveCmd.Flags()
	serveFlags.IntP("port", "p", 0, "Listen port")
	serveFlags.String("ws-path", "", "WebSocket endpoint path")
	serveFlags.String("api-path", "", "HTTP API path prefix")
	serveFlags.String("session-ttl", "", "Idle timeout for HTTP API sessions")
	rootCmd.Flags().AddFlagSet(serveFlags)

	bindFlags(rootCmd, serveCmd)

	rootCmd.AddCommand(serveCmd, parseCmd, execCmd, loopCmd, historyCmd, exportCmd, versionCmd)
}

func bindFlags(root, serve *cobra.Command) {
	persistent := root.PersistentFlags()
	viper.BindPFlag("log.level", persistent.Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", persistent.Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", persistent.Lookup("log-file-path"))
	viper.BindPFlag("output.mode", persistent.Lookup("output"))
	viper.BindPFlag("output.locale", persistent.Lookup("locale"))
	viper.BindPFlag("output.dir", persistent.Lookup("output-dir"))
	viper.BindPFlag("output.silence", persistent.Lookup("silence"))
	viper.BindPFlag("storage.enable", persistent.Lookup("storage-enable"))
	viper.BindPFlag("storage.driver", persistent.Lookup("storage-driver"))
	viper.BindPFlag("storage.path", persistent.Lookup("storage-path"))
	viper.BindPFlag("loop.max_runs", persistent.Lookup("max-runs"))

	viper.BindPFlag("server.port", serve.Flags().Lookup("port"))
	viper.BindPFlag("server.ws_path", serve.Flags().Lookup("ws-path"))
	viper.BindPFlag("server.api_path", serve.Flags().Lookup("api-path"))
	viper.BindPFlag("server.session_ttl", serve.Flags().Lookup("session-ttl"))
}

// loadConfig reads configuration and applies command line overrides,
// which have the highest priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if port, err := cmd.Flags().GetInt("port"); err == nil && port != 0 {
		cfg.Server.Port = port
	}
	if wsPath, err := cmd.Flags().GetString("ws-path"); err == nil && wsPath != "" {
		cfg.Server.WSPath = wsPath
	}
	if apiPath, err := cmd.Flags().GetString("api-path"); err == nil && apiPath != "" {
		cfg.Server.APIPath = apiPath
	}
	if logLevel, err := cmd.Flags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFileEnable, err := cmd.Flags().GetBool("log-file-enable"); err == nil && cmd.Flags().Changed("log-file-enable") {
		cfg.Log.FileLogging.Enable = logFileEnable
	}
	if mode, err := cmd.Flags().GetString("output"); err == nil && mode != "" {
		cfg.Output.Mode = mode
	}
	if locale, err := cmd.Flags().GetString("locale"); err == nil && locale != "" {
		cfg.Output.Locale = locale
	}
	if storageEnable, err := cmd.Flags().GetBool("storage-enable"); err == nil && cmd.Flags().Changed("storage-enable") {
		cfg.Storage.Enable = storageEnable
	}
	if maxRuns, err := cmd.Flags().GetInt("max-runs"); err == nil && cmd.Flags().Changed("max-runs") {
		cfg.Loop.MaxRuns = maxRuns
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Output.Silence {
		printStartupBanner(a.cfg)
	}
	a.log.Info("ReqLoop starting",
		"version", version,
		"port", a.cfg.Server.Port,
		"ws_path", a.cfg.Server.WSPath,
		"api_path", a.cfg.Server.APIPath,
		"log_level", a.cfg.Log.Level,
		"storage", a.cfg.Storage.Enable,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(&a.cfg.Server, a.log, a.store, a.newSession)
	return srv.Run(ctx)
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("ReqLoop version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", buildDate)
}

func printStartupBanner(cfg *config.Config) {
	titleLine := fmt.Sprintf("ReqLoop v%s", version)
	subtitleLine := "cURL Session Server"

	var lines []string
	lines = append(lines, fmt.Sprintf("WebSocket:     ws://0.0.0.0:%d%s", cfg.Server.Port, cfg.Server.WSPath))
	lines = append(lines, fmt.Sprintf("HTTP API:      http://0.0.0.0:%d%s", cfg.Server.Port, cfg.Server.APIPath))
	lines = append(lines, fmt.Sprintf("Session TTL:   %v", cfg.Server.SessionTTL))
	lines = append(lines, fmt.Sprintf("Log Level:     %s", cfg.Log.Level))
	lines = append(lines, fmt.Sprintf("Output Dir:    %s", cfg.Output.Dir))

	lines = append(lines, "")
	if cfg.Storage.Enable {
		lines = append(lines, fmt.Sprintf("Run History:   Enabled (%s)", cfg.Storage.Driver))
		if cfg.Storage.Driver != "memory" {
			lines = append(lines, fmt.Sprintf("   └─ %s", cfg.Storage.Path))
		}
	} else {
		lines = append(lines, "Run History:   Disabled")
	}
	if cfg.Log.FileLogging.Enable {
		lines = append(lines, fmt.Sprintf("File Logging:  %s", cfg.Log.FileLogging.Path))
	} else {
		lines = append(lines, "File Logging:  Disabled")
	}

	lines = append(lines, "", "(Press Ctrl+C to stop)")

	maxLength := runewidth.StringWidth(titleLine)
	for _, line := range append(lines, subtitleLine) {
		if w := runewidth.StringWidth(line); w > maxLength {
			maxLength = w
		}
	}
	boxWidth := maxLength + 4
	if boxWidth < 50 {
		boxWidth = 50
	}

	fmt.Println()
	printBoxBorder("┌", "┐", boxWidth)
	printBoxContent(titleLine, boxWidth, true)
	printBoxContent(subtitleLine, boxWidth, true)
	printBoxBorder("├", "┤", boxWidth)
	for _, line := range lines {
		printBoxContent(line, boxWidth, false)
	}
	printBoxBorder("└", "┘", boxWidth)
	fmt.Println()
}

func printBoxBorder(left, right string, width int) {
	fmt.Printf("%s%s%s\n", left, strings.Repeat("─", width-2), right)
}

// printBoxContent prints one line padded to the box width
func printBoxContent(content string, boxWidth int, center bool) {
	padding := boxWidth - 2 - runewidth.StringWidth(content)
	if padding < 0 {
		padding = 0
	}

	var leftPad, rightPad string
	if center {
		leftPad = strings.Repeat(" ", padding/2)
		rightPad = strings.Repeat(" ", padding-padding/2)
	} else {
		leftPad = "  "
		rightPad = strings.Repeat(" ", max(padding-2, 0))
	}

	fmt.Printf("│%s%s%s│\n", leftPad, content, rightPad)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger from configuration.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewLogger(&cfg.Log, cfg.Output.Mode)
}
