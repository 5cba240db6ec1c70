package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/analysis"
	"github.com/dyike/StockAnalyzer/internal/form"
	"github.com/dyike/StockAnalyzer/internal/logging"
	"github.com/dyike/StockAnalyzer/internal/tui"
	"github.com/dyike/StockAnalyzer/internal/web"
)

const Version = "1.0.0"

// ErrAnalysisFailed is returned by `analyze` after the failure has already
// been shown to the user.
var ErrAnalysisFailed = errors.New("analysis failed")

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	configPath string
	debug      bool

	manager *config.Manager
	cfg     config.Config
	logger  *zap.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "stockanalyzer",
		Short: "StockAnalyzer - ask an analysis service about a stock",
		Long: `StockAnalyzer sends an API key and a stock name to a stock analysis service
and shows the analysis it returns.

Run without arguments to open the interactive form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd)
		},
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Only serve logs to the terminal; elsewhere it belongs to the form
		// and the printed analysis.
		return a.setup(cmd.Name() != "serve")
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a.logger != nil {
			_ = a.logger.Sync()
		}
	}

	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path")

	return rootCmd
}

func (a *app) setup(logToFile bool) error {
	config.LoadDotEnv()

	mgr, err := config.NewManager(config.WithConfigPath(a.configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.manager = mgr
	a.cfg = mgr.Effective()
	if a.debug {
		a.cfg.Debug = true
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	opts := logging.Options{Debug: a.cfg.Debug, Format: a.cfg.LogFormat}
	if logToFile {
		opts.File = logging.FilePath(a.cfg.LogDir)
	}
	a.logger, err = logging.New(opts)
	if err != nil {
		return err
	}
	mgr.SetLogger(a.logger.Named("config"))
	return nil
}

func (a *app) newClient(cfg config.Config) *analysis.Client {
	return analysis.NewClient(analysis.Options{
		Endpoint:  cfg.AnalyzeURL,
		UserAgent: "StockAnalyzer/" + Version,
		Logger:    a.logger.Named("analysis"),
	})
}

func (a *app) newController() *form.Controller {
	return form.New(a.newClient(a.cfg),
		form.WithLogger(a.logger.Named("form")),
		form.WithTimeout(a.cfg.RequestTimeout()))
}

func (a *app) runInteractive(cmd *cobra.Command) error {
	a.logger.Info("starting interactive form", zap.String("endpoint", a.cfg.AnalyzeURL))
	return tui.Run(cmd.Context(), a.newController())
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(a *app) *cobra.Command {
	var keyFromStdin bool

	cmd := &cobra.Command{
		Use:   "analyze [STOCK]",
		Short: "Analyze one stock and print the result",
		Long: `Prompt for an API key, send it with the stock name to the analysis service
and print the analysis. The key is never echoed, stored or logged.

Example: stockanalyzer analyze "Tata Motors"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stock := ""
			if len(args) == 1 {
				stock = args[0]
			}
			return a.runAnalyze(cmd, stock, keyFromStdin)
		},
	}

	cmd.Flags().BoolVar(&keyFromStdin, "key-stdin", false, "Read the API key from the first line of stdin instead of prompting")

	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, stock string, keyFromStdin bool) error {
	out := cmd.OutOrStdout()

	var (
		credential form.Credential
		err        error
	)
	if keyFromStdin {
		credential, err = readCredential(cmd.InOrStdin())
	} else {
		credential, err = PromptForCredential()
	}
	if err != nil {
		return err
	}

	if strings.TrimSpace(stock) == "" {
		stock, err = PromptForStock()
		if err != nil {
			return err
		}
	}

	ctrl := a.newController()
	ctrl.SetCredential(credential)
	ctrl.SetTicker(stock)

	unsubscribe := ctrl.Subscribe(func(st form.State) {
		if st.Busy() {
			DisplayBusy(out, stock)
		}
	})
	defer unsubscribe()

	st, err := ctrl.Submit(cmd.Context())
	if err != nil {
		return err
	}

	if msg, ok := st.ErrorMessage(); ok {
		DisplayError(out, msg)
		return ErrAnalysisFailed
	}
	text, _ := st.AnalysisText()
	DisplayAnalysis(out, text)
	return nil
}

func readCredential(r io.Reader) (form.Credential, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key from stdin: %w", err)
	}
	key := strings.TrimRight(line, "\r\n")
	if key == "" {
		return "", fmt.Errorf("no API key on stdin")
	}
	return form.Credential(key), nil
}

// newServeCmd creates the serve command
func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis form over HTTP",
		Long: `Serve the analysis form to browsers. Changes to the configuration file
(analyze_url, request_timeout_seconds) apply without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			return a.runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to listen_addr from the config)")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, addr string) error {
	srv, err := web.NewServer(web.Options{
		Addr:     addr,
		Analyzer: a.newClient(a.cfg),
		Timeout:  a.cfg.RequestTimeout(),
		Logger:   a.logger.Named("web"),
		Debug:    a.cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to build web server: %w", err)
	}

	ctx := cmd.Context()
	err = a.manager.Watch(ctx, func(stored config.Config) {
		stored.LoadFromEnv()
		client := a.newClient(stored)
		a.logger.Info("switching analysis endpoint", zap.String("endpoint", client.Endpoint()))
		srv.SetAnalyzer(client, stored.RequestTimeout())
	})
	if err != nil {
		a.logger.Warn("config hot reload disabled", zap.Error(err))
	}

	return srv.Run(ctx)
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockAnalyzer v%s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect and change the StockAnalyzer configuration file",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), a.manager.Path(), a.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.manager.Path())
		},
	})

	var assumeYes bool
	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one configuration value",
		Long:  "Change one configuration value. Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == "analyze_url" && insecureRemote(value) && !assumeYes {
				ok, err := ConfirmInsecureEndpoint(value)
				if err != nil {
					return err
				}
				if !ok {
					DisplayInfo(cmd.OutOrStdout(), "Configuration unchanged.")
					return nil
				}
			}
			if err := a.manager.UpdateField(key, value); err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("%s = %s", key, value))
			return nil
		},
	}
	setCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	configCmd.AddCommand(setCmd)

	return configCmd
}

// insecureRemote reports whether the API key would cross the network in
// clear text.
func insecureRemote(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return false
	}
	return true
}

// showConfig displays the current configuration
func showConfig(w io.Writer, path string, cfg config.Config) {
	fmt.Fprintln(w, "Current StockAnalyzer Configuration:")
	fmt.Fprintln(w, strings.Repeat("=", 39))
	fmt.Fprintf(w, "Config File:          %s\n", path)
	fmt.Fprintf(w, "Analyze URL:          %s\n", cfg.AnalyzeURL)
	if cfg.RequestTimeoutSeconds > 0 {
		fmt.Fprintf(w, "Request Timeout:      %s\n", cfg.RequestTimeout())
	} else {
		fmt.Fprintln(w, "Request Timeout:      none")
	}
	fmt.Fprintf(w, "Listen Address:       %s\n", cfg.ListenAddr)
	fmt.Fprintf(w, "Log Format:           %s\n", cfg.LogFormat)
	fmt.Fprintf(w, "Log Directory:        %s\n", cfg.LogDir)
	fmt.Fprintf(w, "Debug Mode:           %t\n", cfg.Debug)
}
