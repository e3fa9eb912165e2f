package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wavecrit/wavecrit/internal/api"
	"github.com/wavecrit/wavecrit/internal/daemon"
	"github.com/wavecrit/wavecrit/internal/sweep"
)

var serveForeground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine API server and background sweeper",
	Long: `Start the HTTP API server together with the lease-expiry sweeper.

By default the server daemonizes into the background. Use --foreground
to keep it attached to the terminal. Use 'serve stop' and
'serve status' to manage a background instance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveForeground {
			return serveRun()
		}
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show background server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().BoolVar(&serveForeground, "foreground", false, "Run in the foreground instead of daemonizing")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	dir, _ := configDirFunc()
	return daemon.NewPIDFile(filepath.Join(dir, "wavecrit-serve.pid"))
}

func serveLogPath() string {
	dir, _ := configDirFunc()
	return filepath.Join(dir, "wavecrit-serve.log")
}

// serveStartRun relaunches the binary as a detached child running
// 'serve --foreground' and records its PID.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	if dryRun {
		ui.DryRunMsg("Would start server on port %d", viper.GetInt("port"))
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "serve", "--foreground",
		"--port", fmt.Sprintf("%d", viper.GetInt("port")))
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}

	ui.Success("Server started (pid %d) on port %d", child.Process.Pid, viper.GetInt("port"))
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return errors.New("server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	// Give it a moment; escalate if it ignores SIGTERM.
	for i := 0; i < 20; i++ {
		if _, alive := pf.IsRunning(); !alive {
			_ = pf.Remove()
			ui.Success("Server stopped (pid %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = pf.Signal(sigKILL())
	_ = pf.Remove()
	ui.Warning("Server killed (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		ui.Success("Server running (pid %d)", pid)
		return nil
	}
	ui.Info("Server not running")
	return nil
}

// serveRun runs the API server in the foreground with the sweep ticker
// until interrupted.
func serveRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	assigner := newAssigner(s)
	sweeper := newSweeper(s, assigner)
	recalc := newRecalculator(s)
	srv := api.NewServer(s, assigner, sweeper, recalc, nil)

	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	// The maintenance pass runs on a fixed interval; the API's /sweep
	// and /assign endpoints cover on-demand runs between ticks.
	interval := time.Duration(viper.GetInt("engine.sweep_interval_minutes")) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				maintenancePass(ctx, sweeper)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		ui.Info("Serving API at http://localhost%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// maintenancePass is one tick of the background loop: expire lapsed
// leases, then bulk-assign recent tracks whose assignment trigger was
// missed (a dropped payment webhook, a crash mid-assign).
func maintenancePass(ctx context.Context, sweeper *sweep.Sweeper) {
	if res, err := sweeper.Sweep(ctx); err != nil {
		ui.Error("sweep failed: %v", err)
	} else if res.ExpiredCount > 0 {
		ui.Info("sweep expired %d leases across %d tracks", res.ExpiredCount, res.AffectedTrackCount)
	}

	if n, err := sweeper.BulkAssign(ctx); err != nil {
		ui.Error("bulk assign failed: %v", err)
	} else if n > 0 {
		ui.Info("bulk assign filled %d review slots", n)
	}
}
