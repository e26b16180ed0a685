package main

import (
	"fmt"
	"os"

	"github.com/sigreer/ardenthat/internal/config"
	"github.com/sigreer/ardenthat/internal/finalizer"
	"github.com/sigreer/ardenthat/internal/history"
	"github.com/sigreer/ardenthat/internal/installer"
	"github.com/sigreer/ardenthat/internal/inventory"
	"github.com/sigreer/ardenthat/internal/knowledge"
	"github.com/sigreer/ardenthat/internal/logging"
	"github.com/sigreer/ardenthat/internal/pipeline"
	"github.com/sigreer/ardenthat/internal/resolver"
	"github.com/sigreer/ardenthat/internal/sources"
	"github.com/sigreer/ardenthat/internal/system"
	"github.com/sigreer/ardenthat/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	kbFile    string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "ardenthat",
	Short: "Hardware detection and driver management for Arch Linux",
	Long: `ArdentHAT detects the hardware in this machine, works out which drivers
it needs and installs the missing ones through pacman and the kernel
module loader, rebuilding the initramfs when something changed.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/ardenthat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&kbFile, "kb", "", "driver knowledge base file (default is the built-in one)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// app is everything one command invocation needs
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	journal  *history.Journal
}

// loadConfig reads the configuration and sets up logging from it
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(verbosity, logFile(cfg))
	return cfg
}

// logFile is the configured log file, or the XDG state location
func logFile(cfg *config.Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	return logging.DefaultLogFile()
}

// newApp builds the pipeline from configuration. The install journal is
// opened only when withJournal is set and history is enabled.
func newApp(withJournal bool) *app {
	cfg := loadConfig()

	kbPath := cfg.KnowledgeBase
	if kbFile != "" {
		kbPath = kbFile
	}
	kb, err := knowledge.Load(kbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading knowledge base: %v\n", err)
		os.Exit(1)
	}
	kbLog := logging.GetLogger("knowledge")
	kbLog.Debug().Str("path", kbPath).Str("kb", kb.String()).Msg("Knowledge base loaded")

	runner := system.NewExec(logging.GetLogger("system"))

	a := &app{cfg: cfg}
	a.pipeline = &pipeline.Pipeline{
		Scanner: &inventory.Scanner{
			Runner:  runner,
			Sources: sources.Default(cfg.SourcesConfig(), logging.GetLogger("sources")),
			Timeout: cfg.Probe.Timeout,
			Logger:  logging.GetLogger("inventory"),
		},
		Resolver: resolver.New(kb, logging.GetLogger("resolver")),
		Installer: &installer.Installer{
			Modules: &installer.KernelModules{
				Runner:         runner,
				ModulesDir:     cfg.Installer.ModulesDir,
				ProcModules:    cfg.Installer.ProcModules,
				LoadCommand:    cfg.Installer.ModuleCommand,
				PersistDir:     cfg.Installer.PersistDir,
				PersistCommand: cfg.Installer.PersistCommand,
				Logger:         logging.GetLogger("modules"),
			},
			Packages: &installer.Pacman{
				Runner:         runner,
				QueryCommand:   cfg.Installer.QueryCommand,
				InstallCommand: cfg.Installer.InstallCommand,
				Logger:         logging.GetLogger("pacman"),
			},
			LockPath: cfg.LockFile,
			Logger:   logging.GetLogger("installer"),
		},
		Finalizer: &finalizer.Finalizer{
			Runner:  runner,
			Command: cfg.Finalizer.Command,
			Logger:  logging.GetLogger("finalizer"),
		},
		Logger: logging.GetLogger("pipeline"),
	}

	if cfg.History.Enabled && withJournal {
		j, err := history.Open(cfg.History.Path)
		if err != nil {
			histLog := logging.GetLogger("history")
			histLog.Warn().Err(err).Msg("Install journal unavailable")
		} else {
			a.journal = j
			a.pipeline.Journal = j
		}
	}
	return a
}

// Close releases the journal
func (a *app) Close() {
	if a.journal != nil {
		a.journal.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
