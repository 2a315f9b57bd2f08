package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/service"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [serviceName] [configFilePath]",
	Short: "Load the configuration and print what the service would use",
	Long: "Reads redis.conf and " + config.SettingsFileName + " the same way the service does and\n" +
		"prints the result. Exits with the configuration error code on failure.",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, configFile := invocation(args)
		dir, err := binDir()
		if err != nil {
			return &exitError{code: service.ExitConfig, err: err}
		}
		w := cmd.OutOrStdout()

		settings, settingsFile, warnings, err := loadSettings(dir)
		for _, warn := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
		}
		if err != nil {
			return &exitError{code: service.ExitConfig, err: err}
		}

		// Load from the binary directory and follow "dir" directives, as the
		// service does.
		if err := os.Chdir(dir); err != nil {
			return &exitError{code: service.ExitConfig, err: fmt.Errorf("cannot change directory: %w", err)}
		}
		svc, warnings, err := config.Load(configFile)
		for _, warn := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
		}
		if err != nil {
			return &exitError{code: service.ExitConfig, err: err}
		}
		svc.ServiceName = name
		if settings.ChildBinary != "" {
			svc.ChildBinaryPath = settings.ChildBinary
		}
		svc.ChildBinaryPath = underDir(dir, svc.ChildBinaryPath)
		svc.LogFilePath = underDir(dir, svc.LogFilePath)

		return printCheck(w, svc.Masked(), settings, settingsFile)
	},
}

func underDir(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func printCheck(w io.Writer, svc config.ServiceConfig, s *config.Settings, settingsFile string) error {
	if settingsFile == "" {
		settingsFile = "(defaults)"
	}
	password := "(none)"
	if svc.Password != "" {
		password = svc.Password
	}
	lines := []string{
		fmt.Sprintf("service:          %s", svc.ServiceName),
		fmt.Sprintf("config file:      %s", svc.ConfigFilePath),
		fmt.Sprintf("child binary:     %s", svc.ChildBinaryPath),
		fmt.Sprintf("address:          %s:%d", svc.Host, svc.Port),
		fmt.Sprintf("password:         %s", password),
		fmt.Sprintf("auth command:     %s", svc.AuthCommand),
		fmt.Sprintf("shutdown command: %s", svc.ShutdownCommand),
		fmt.Sprintf("log file:         %s", svc.LogFilePath),
		fmt.Sprintf("log level:        %s", logging.LevelName(svc.LogLevel)),
		fmt.Sprintf("settings:         %s", settingsFile),
		fmt.Sprintf("fallback wait:    %s", s.FallbackWait.Duration),
		fmt.Sprintf("kill wait:        %s", s.KillWait.Duration),
		fmt.Sprintf("connect timeout:  %s", s.ConnectTimeout.Duration),
	}
	if s.Status.Listen != "" {
		lines = append(lines, fmt.Sprintf("status listener:  %s", s.Status.Listen))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
