package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vinaykashyap1996/circonomit-sim/internal/api"
	"github.com/vinaykashyap1996/circonomit-sim/internal/persistence"
)

var (
	servePort     int
	serveAdminKey string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation HTTP API",
	Long: `Serve the simulation over HTTP. The API exposes the model, the
scenario catalog, and simulate/compare runs; with --db and an admin key
it also accepts scenario writes.

Examples:
  costsim serve
  costsim serve --port 9090 --db data/costsim.db
  COSTSIM_ADMIN_KEY=secret costsim serve --db data/costsim.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port")
	serveCmd.Flags().StringVar(&serveAdminKey, "admin-key", "", "Bearer key for scenario admin endpoints (default $COSTSIM_ADMIN_KEY)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	m, err := loadModel()
	if err != nil {
		return err
	}
	extras, err := loadExtras()
	if err != nil {
		return err
	}

	var st *persistence.Store
	if flagDBPath != "" {
		st, err = persistence.Open(flagDBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		slog.Info("scenario store opened", "path", flagDBPath)
	}

	adminKey := serveAdminKey
	if adminKey == "" {
		adminKey = os.Getenv("COSTSIM_ADMIN_KEY")
	}
	if adminKey == "" {
		slog.Warn("COSTSIM_ADMIN_KEY not set, scenario admin endpoints disabled")
	}

	srv := &api.Server{
		Model:    m,
		Store:    st,
		Extra:    extras,
		Port:     servePort,
		AdminKey: adminKey,
	}
	srv.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", servePort)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	return nil
}
