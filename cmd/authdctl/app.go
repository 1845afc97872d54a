package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/scope"
	"github.com/pulsegram/authd/internal/security/keyhash"
	tokens "github.com/pulsegram/authd/internal/security/token"
	pgstore "github.com/pulsegram/authd/internal/store/pg"
)

func newAppCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Gestión de applications registradas",
	}
	cmd.AddCommand(newAppRegisterCmd())
	return cmd
}

func newAppRegisterCmd() *cobra.Command {
	var (
		name      string
		redirects []string
		scopes    []string
		env       string
		override  int
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Registra una application y emite client_id/client_secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagDSN == "" {
				return fmt.Errorf("--dsn (o STORAGE_DSN) requerido")
			}
			if name == "" || len(redirects) == 0 || len(scopes) == 0 {
				return fmt.Errorf("--name, --redirect-uri y --scope son requeridos")
			}
			if env != repository.AppEnvDevelopment && env != repository.AppEnvProduction {
				return fmt.Errorf("--env debe ser development o production")
			}
			reg := scope.Default()
			if _, invalid := reg.ValidateList(scopes); len(invalid) > 0 {
				return fmt.Errorf("scopes desconocidos: %s", strings.Join(invalid, " "))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := pgstore.New(ctx, flagDSN, pgstore.PoolConfig{})
			if err != nil {
				return err
			}
			defer st.Close()

			secret, err := tokens.GenerateOpaque(32)
			if err != nil {
				return err
			}
			secretHash, err := keyhash.Hash(keyhash.Default, secret)
			if err != nil {
				return err
			}

			app := &repository.Application{
				ClientID:         "app_" + uuid.NewString(),
				Name:             name,
				ClientSecretHash: secretHash,
				RedirectURIs:     redirects,
				ApprovedScopes:   scopes,
				Environment:      env,
				Status:           repository.AppStatusActive,
			}
			if override > 0 {
				app.RateLimitOverride = &override
			}
			if err := st.Apps().Create(ctx, app); err != nil {
				return err
			}

			// El secret se imprime una sola vez; solo persiste el hash.
			fmt.Println("client_id:     ", app.ClientID)
			fmt.Println("client_secret: ", secret)
			fmt.Println("scopes:        ", strings.Join(scopes, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "nombre visible de la application")
	cmd.Flags().StringArrayVar(&redirects, "redirect-uri", nil, "redirect URI permitido (repetible, match exacto)")
	cmd.Flags().StringArrayVar(&scopes, "scope", nil, "scope aprobado (repetible)")
	cmd.Flags().StringVar(&env, "env", repository.AppEnvDevelopment, "environment: development | production")
	cmd.Flags().IntVar(&override, "rate-limit", 0, "override del límite de rate (0 = tier por defecto)")
	return cmd
}
