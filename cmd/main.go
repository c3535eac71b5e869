package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clatgo/clatd/cmd/subcmd"
	"github.com/clatgo/clatd/offload"
)

var (
	confFilePath string
	logLevelFlag string
	logTimeFlag  bool

	builtCommit = "dev"

	rootCmd = &cobra.Command{
		Use:   "clatd",
		Short: "eBPF-offloaded CLAT for Linux.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Attach the translation programs and keep an eye on them.",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := ReadConf(confFilePath)
			if err != nil {
				slog.Error("couldn't read the configuration", "path", confFilePath, "err", err)
				os.Exit(1)
			}

			o, err := offload.NewOffloader(conf.Offload)
			if err != nil {
				slog.Error("couldn't create the offloader", "err", err)
				os.Exit(1)
			}

			if err := o.Init(); err != nil {
				slog.Error("couldn't initialise the offloader", "err", err)
				os.Exit(1)
			}

			if err := writePIDFile(conf.PIDPath); err != nil {
				slog.Warn("couldn't write the PID file", "path", conf.PIDPath, "err", err)
			}

			doneChan := make(chan struct{})
			go o.Run(doneChan)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			close(doneChan)
			if err := o.Cleanup(); err != nil {
				slog.Error("error cleaning up the offloader", "err", err)
			}
			removePIDFile(conf.PIDPath)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "whether to include timestamps in logs")
	rootCmd.PersistentFlags().StringVar(&confFilePath, "conf", "/etc/clatd/conf.yaml", "path of the configuration file")

	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(subcmd.TcStatus)
	rootCmd.AddCommand(subcmd.Detach)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

func removePIDFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Warn("couldn't remove the PID file", "path", path, "err", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
