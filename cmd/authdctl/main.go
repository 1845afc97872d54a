// authdctl es la herramienta de operación del servidor de autorización:
// migraciones, registro de applications y verbos de introspección/revocación
// contra un servidor corriendo.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagDSN     string
	flagBaseURL string
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "authdctl",
		Short:         "Herramienta de operación de authd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagDSN, "dsn", os.Getenv("STORAGE_DSN"), "DSN postgres (comandos de DB)")
	root.PersistentFlags().StringVar(&flagBaseURL, "url", envOr("AUTHD_URL", "http://localhost:8080"), "URL base del servidor (comandos HTTP)")

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newAppCmd())
	root.AddCommand(newIntrospectCmd())
	root.AddCommand(newRevokeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
