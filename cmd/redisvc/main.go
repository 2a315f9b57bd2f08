package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/metrics"
	"github.com/kahiteam/redisvc/internal/service"
	"github.com/spf13/cobra"
)

// exitUsage is returned for command-line mistakes so they cannot be
// confused with a service exit code.
const exitUsage = 64

var settingsPath string
var foreground bool

var rootCmd = &cobra.Command{
	Use:   "redisvc [serviceName] [configFilePath]",
	Short: "redisvc -- run redis-server as a system service",
	Long: "redisvc runs redis-server under the host service manager, mirrors its\n" +
		"state to the manager, and shuts it down gracefully on stop requests.\n\n" +
		"serviceName defaults to \"" + config.DefaultServiceName + "\" and configFilePath to \"" +
		config.DefaultConfigFile + "\",\nrelative to the redisvc binary directory.",
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runService,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// invocation returns the service name and config file from positional args.
func invocation(args []string) (name, configFile string) {
	name, configFile = config.DefaultServiceName, config.DefaultConfigFile
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		configFile = args[1]
	}
	return name, configFile
}

// binDir returns the directory holding the running executable.
func binDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// loadSettings resolves and reads redisvc.toml, falling back to defaults
// when there is none.
func loadSettings(dir string) (*config.Settings, string, []string, error) {
	path, err := config.ResolveSettings(settingsPath, dir)
	if err != nil {
		return nil, "", nil, err
	}
	if path == "" {
		return config.DefaultSettings(), "", nil, nil
	}
	s, warnings, err := config.LoadSettings(path)
	return s, path, warnings, err
}

func runService(cmd *cobra.Command, args []string) error {
	name, configFile := invocation(args)
	console := logging.New(logging.LogConfig{Level: "info", Output: cmd.ErrOrStderr()})

	dir, err := binDir()
	if err != nil {
		return &exitError{code: service.ExitDispatcher, err: err}
	}

	if !foreground {
		hosted, err := service.IsService()
		if err != nil {
			return &exitError{code: service.ExitDispatcher, err: fmt.Errorf("cannot detect service manager: %w", err)}
		}
		if !hosted {
			exe, _ := os.Executable()
			service.WriteInstructions(cmd.OutOrStdout(), service.InstallOptions{
				ServiceName: name,
				ConfigFile:  configFile,
				Executable:  exe,
			})
			return &exitError{code: service.ExitNotService}
		}
	}

	settings, _, warnings, err := loadSettings(dir)
	for _, w := range warnings {
		console.Warn(w)
	}
	if err != nil {
		return &exitError{code: service.ExitConfig, err: err}
	}

	ctrl := service.NewController(service.Options{
		ServiceName: name,
		ConfigFile:  configFile,
		BinDir:      dir,
		Settings:    settings,
		Metrics:     metrics.New(),
		Console:     console,
	})

	var code int
	if foreground {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		code = ctrl.Execute(ctx)
	} else {
		code, err = service.RunHosted(name, ctrl)
		if err != nil {
			return &exitError{code: service.ExitDispatcher, err: fmt.Errorf("cannot run under service manager: %w", err)}
		}
	}
	if code != service.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "path to redisvc.toml (default: $"+config.SettingsEnv+" or next to the binary)")
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "run attached to the console instead of under a service manager")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, err)
	return exitUsage
}
