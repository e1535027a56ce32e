package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jingkaihe/hostext/internal/demoplugins"
	"github.com/jingkaihe/hostext/pkg/client"
	"github.com/jingkaihe/hostext/pkg/config"
	"github.com/jingkaihe/hostext/pkg/logging"
	"github.com/jingkaihe/hostext/pkg/obslog"
	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/jingkaihe/hostext/pkg/server"

	"github.com/google/uuid"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a configured set of example plugins inside the runtime",
	Long: `Run a configured set of example plugins inside the runtime.

Example plugins (enable any combination):
  --with-tables            register the readonly t1/t2 demo tables
  --with-kv-table          register the writeable kv demo table
  --with-logger --log-file registers a file logger writing to --log-file
  --with-config            register the static_config demo config plugin

extctl dials the host's --config-supplied registration socket, registers
whichever plugins are enabled, and serves until the host asks it to stop
or it receives SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("config", "", "path to the extension config file (required)")
	runCmd.Flags().Bool("watch", false, "watch the config file and log the reloaded ping interval and log path (the running server keeps its startup values)")
	runCmd.Flags().Bool("with-tables", true, "register the readonly t1/t2 demo tables")
	runCmd.Flags().Bool("with-kv-table", false, "register the writeable kv demo table")
	runCmd.Flags().Bool("with-logger", false, "register the file logger demo plugin")
	runCmd.Flags().String("log-file", "", "log file path for --with-logger")
	runCmd.Flags().Bool("with-config", false, "register the static_config demo config plugin")
	runCmd.Flags().String("audit-log", "", "path to append JSONL audit events to (empty disables)")
	runCmd.Flags().String("hook", "", "shell command to run 200ms after the server starts (registration success is not checked)")
	runCmd.MarkFlagRequired("config")

	viper.BindPFlag("run.config", runCmd.Flags().Lookup("config"))
	viper.BindPFlag("run.watch", runCmd.Flags().Lookup("watch"))
	viper.BindPFlag("run.with-tables", runCmd.Flags().Lookup("with-tables"))
	viper.BindPFlag("run.with-kv-table", runCmd.Flags().Lookup("with-kv-table"))
	viper.BindPFlag("run.with-logger", runCmd.Flags().Lookup("with-logger"))
	viper.BindPFlag("run.log-file", runCmd.Flags().Lookup("log-file"))
	viper.BindPFlag("run.with-config", runCmd.Flags().Lookup("with-config"))
	viper.BindPFlag("run.audit-log", runCmd.Flags().Lookup("audit-log"))
	viper.BindPFlag("run.hook", runCmd.Flags().Lookup("hook"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	watch, _ := cmd.Flags().GetBool("watch")
	withTables, _ := cmd.Flags().GetBool("with-tables")
	withKVTable, _ := cmd.Flags().GetBool("with-kv-table")
	withLogger, _ := cmd.Flags().GetBool("with-logger")
	logFile, _ := cmd.Flags().GetString("log-file")
	withConfig, _ := cmd.Flags().GetBool("with-config")
	auditLog, _ := cmd.Flags().GetString("audit-log")
	hook, _ := cmd.Flags().GetString("hook")

	if withLogger && logFile == "" {
		return fmt.Errorf("--log-file is required with --with-logger")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := obslog.New(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	var emitter *logging.Emitter
	if auditLog != "" {
		writer, err := logging.NewJSONLWriter(auditLog)
		if err != nil {
			return err
		}
		defer writer.Close()
		emitter = logging.NewEmitter(logging.EmitterConfig{
			RunID:       uuid.NewString(),
			AgentSystem: cfg.Name,
		}, writer)
	}

	registry := plugin.NewRegistry()
	if withTables {
		if err := registry.Register(plugin.NewTableAdapter(demoplugins.T1Table{})); err != nil {
			return err
		}
		if err := registry.Register(plugin.NewTableAdapter(demoplugins.T2Table{})); err != nil {
			return err
		}
	}
	if withKVTable {
		if err := registry.Register(plugin.NewTableAdapter(demoplugins.NewKVTable())); err != nil {
			return err
		}
	}
	if withLogger {
		logger, err := demoplugins.NewFileLogger(logFile)
		if err != nil {
			return err
		}
		defer logger.Close()
		if err := registry.Register(plugin.NewLoggerAdapter(logger)); err != nil {
			return err
		}
	}
	if withConfig {
		if err := registry.Register(plugin.NewConfigAdapter(demoplugins.StaticConfig{})); err != nil {
			return err
		}
	}

	hc, err := client.Dial(client.Config{
		RegistrationSocketPath: cfg.RegistrationSocketPath,
		ConnectTimeout:         cfg.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer hc.Close()

	srv := server.New(cfg, registry, hc, log, emitter)

	if watch {
		if _, err := config.Watch(configPath, func(reloaded *config.Config) {
			log.Info("config reloaded", zap.Duration("ping_interval", reloaded.PingInterval), zap.String("log_path", reloaded.LogPath))
		}); err != nil {
			return err
		}
	}

	if hook != "" {
		go runHookAfterDelay(log, hook)
	}

	return srv.RunWithSignalHandling(context.Background())
}

// runHookAfterDelay waits a fixed 200ms, giving the server a moment to
// register, then fires the hook; it does not check that registration
// succeeded and does not block the caller.
func runHookAfterDelay(log *zap.Logger, hookCmd string) {
	time.Sleep(200 * time.Millisecond)
	args, err := shellquote.Split(hookCmd)
	if err != nil || len(args) == 0 {
		return
	}
	c := exec.Command(args[0], args[1:]...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		log.Warn("hook command failed", zap.String("cmd", hookCmd), zap.Error(err))
	}
}
