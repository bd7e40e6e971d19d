package gdb

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mantis-emu/mantis/pkg/debug/gdb"
	"github.com/mantis-emu/mantis/pkg/emu/sim"
)

var (
	servePort    int
	serveLogFile string
	serveVerbose bool
)

var (
	colorSuccess = color.New(color.FgGreen)
	colorInfo    = color.New(color.FgCyan)
	colorError   = color.New(color.FgRed, color.Bold)
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a GDB stub over a simulated guest",
	Long: `Starts the reference execution engine and serves the GDB remote serial
protocol stub on top of it, so an external debugger can be pointed at a
known-good target.

Attach with:
  (gdb) target remote localhost:1234

Example:
  mantis gdb serve --port 1234`,
	Run: runServe,
}

func init() {
	GdbCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 1234, "TCP port to listen on")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Also write JSON logs to this file")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Log protocol traffic")
	viper.BindPFlag("gdb.port", serveCmd.Flags().Lookup("port"))
}

// buildLogger fans the process log out to the console and, when
// requested, a JSON file.
func buildLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if serveVerbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	cleanup := func() {}

	if serveLogFile != "" {
		file, err := os.OpenFile(serveLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
		cleanup = func() { file.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) {
	port := viper.GetInt("gdb.port")
	if port == 0 {
		port = servePort
	}

	log, cleanup, err := buildLogger()
	if err != nil {
		colorError.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	config := sim.DefaultConfig()
	processor := sim.New(config)
	defer processor.Close()
	objects := sim.NewObjectTable(config)

	stub := gdb.NewStub(processor, objects, log)
	if err := stub.Listen(port); err != nil {
		colorError.Fprintf(os.Stderr, "Error starting stub: %v\n", err)
		os.Exit(2)
	}
	defer stub.Close()

	colorSuccess.Fprintf(os.Stderr, "GDB stub listening on %s\n", stub.Addr())
	colorInfo.Fprintln(os.Stderr, "Attach with: target remote", stub.Addr())

	// Block until interrupted.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	<-interrupted

	fmt.Fprintln(os.Stderr)
	colorInfo.Fprintln(os.Stderr, "Shutting down")
}
