package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kahiteam/redisvc/internal/service"
	"github.com/spf13/cobra"
)

var installUnitDir string

var installCmd = &cobra.Command{
	Use:   "install [serviceName] [configFilePath]",
	Short: "Register redisvc with the host service manager",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := installOptions(args)
		if err != nil {
			return err
		}
		dir, err := binDir()
		if err != nil {
			return err
		}
		settings, _, _, err := loadSettings(dir)
		if err != nil {
			return &exitError{code: service.ExitConfig, err: err}
		}
		opts.StopTimeout = settings.StopTimeout()
		where, err := service.Install(opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "installed %s: %s\n", opts.ServiceName, where)
		return err
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [serviceName]",
	Short: "Unregister redisvc from the host service manager",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := installOptions(args)
		if err != nil {
			return err
		}
		where, err := service.Remove(opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s: %s\n", opts.ServiceName, where)
		return err
	},
}

// installOptions builds the registration from the command line. The config
// path is kept as given so it stays relative to the binary directory.
func installOptions(args []string) (service.InstallOptions, error) {
	name, configFile := invocation(args)
	exe, err := os.Executable()
	if err != nil {
		return service.InstallOptions{}, fmt.Errorf("cannot locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	settings := settingsPath
	if settings != "" {
		if abs, err := filepath.Abs(settings); err == nil {
			settings = abs
		}
	}
	return service.InstallOptions{
		ServiceName:  name,
		ConfigFile:   configFile,
		Executable:   exe,
		SettingsFile: settings,
		UnitDir:      installUnitDir,
	}, nil
}

func init() {
	for _, c := range []*cobra.Command{installCmd, removeCmd} {
		c.Flags().StringVar(&installUnitDir, "unit-dir", "", "directory for systemd units (POSIX only, default /etc/systemd/system)")
		rootCmd.AddCommand(c)
	}
}
