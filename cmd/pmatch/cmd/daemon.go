package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/app"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/spf13/cobra"
)

var (
	daemonSignatures  string
	daemonStrategy    match.Strategy
	daemonNoPrefilter bool
	daemonHTTP        bool
	daemonPort        int
	daemonWalk        source.WalkOptions
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the scan daemon",
	Long: "The daemon keeps one signature set compiled in memory and serves\n" +
		"'pmatch scan --daemon' and 'pmatch match --daemon' over a unix socket.",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the daemon in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon health",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

func init() {
	f := daemonStartCmd.Flags()
	f.StringVar(&daemonSignatures, "signatures", "", "Directory of signature files")
	f.VarP(&daemonStrategy, "strategy", "s", "Matching strategy: optimal, serial, block")
	f.BoolVar(&daemonNoPrefilter, "no-prefilter", false, "Match every signature against every file")
	f.BoolVar(&daemonHTTP, "http", false, "Also serve stored reports as JSON on localhost")
	f.IntVar(&daemonPort, "port", 0, "HTTP port (default: derived from the project path)")
	addWalkFlags(daemonStartCmd, &daemonWalk)

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if daemonSignatures == "" {
		return errors.New("--signatures is required")
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sigs, err := app.LoadSignatures(daemonSignatures)
	if err != nil {
		return err
	}
	sc, err := a.NewScanner(cmd.Context(), sigs, daemonStrategy, !daemonNoPrefilter)
	if err != nil {
		return err
	}
	d := a.NewDaemon(sc, daemonWalk)
	if err := d.Start(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s daemon listening on %s (%d signatures, %s)\n",
		paint(colorBold, "⚡"), d.Addr(), sc.Len(), sc.Strategy())
	if daemonHTTP {
		url, err := d.StartHTTP(daemonPort)
		if err != nil {
			d.Stop()
			return err
		}
		fmt.Fprintf(os.Stderr, "%s reports at %s/api/reports\n", paint(colorBold, "⚡"), url)
	}
	return d.Wait(cmd.Context())
}

func daemonClient() (*socket.Client, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socket.SocketPath(root))
	if !client.Ping() {
		return nil, errors.New("daemon is not running")
	}
	return client, nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s daemon stopped\n", paint(colorBold, "⚡"))
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	h, err := client.Health()
	if err != nil {
		return err
	}
	fmt.Print(formatHealth(h))
	return nil
}
