package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"asyncops/internal/app"
	"asyncops/internal/config"
	"asyncops/internal/db"
	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/engine/policy"
	"asyncops/internal/migrate"
	"asyncops/internal/repo"
	"asyncops/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "asyncops",
	Short: "AsyncOps backend for asynchronous team operations",
	Long: `AsyncOps keeps a distributed team in sync without meetings.
Members post status updates, report incidents and blockers, and record
decisions with a full audit trail. A daily summary condenses the last day
into one document: fresh status updates, open incidents ranked by severity,
active blockers and recent decisions.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ASYNCOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(summaryCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, err := app.Bootstrap(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			if secret := viper.GetString("jwt-secret"); secret != "" {
				cfg.Auth.JWTSecret = secret
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			e := engine.New(conn, cfg)
			if err := app.EnsureAdmin(cmd.Context(), e,
				viper.GetString("admin-email"),
				viper.GetString("admin-name"),
				viper.GetString("admin-password"),
			); err != nil {
				return err
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth: server.AuthConfig{
					JWTSecret: cfg.Auth.JWTSecret,
					TokenTTL:  time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
				},
				CORSOrigins: cfg.Server.CORSOrigins,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving AsyncOps API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			version, err := migrate.Version(conn)
			if err != nil {
				return err
			}
			fmt.Printf("Database at %s, schema version %d\n", db.Path(workspace), version)
			return nil
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default asyncops.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			data, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	return cfgCmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage user accounts"}
	user.AddCommand(userCreateCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userActivateCmd(true))
	user.AddCommand(userActivateCmd(false))
	return user
}

func userCreateCmd() *cobra.Command {
	var email, fullName, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return err
				}
				password = string(raw)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, engine.RegisterOptions{
					Email:    email,
					FullName: fullName,
					Password: password,
					Role:     role,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", domain.RoleMember, "role: member or admin")
	return cmd
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Active"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Email, u.FullName, u.Role, u.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func userActivateCmd(activate bool) *cobra.Command {
	use, short := "activate", "Reactivate a user account"
	if !activate {
		use, short = "deactivate", "Deactivate a user account"
	}
	var id int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.SetUserActive(ctx, policy.Actor{Role: domain.RoleAdmin}, id, activate)
				if err != nil {
					return err
				}
				fmt.Printf("User %d (%s) active=%v\n", u.ID, u.Email, u.IsActive)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "user id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func summaryCmd() *cobra.Command {
	sum := &cobra.Command{Use: "summary", Short: "Daily summaries"}
	sum.AddCommand(summaryGenerateCmd())
	sum.AddCommand(summaryListCmd())
	return sum
}

func summaryGenerateCmd() *cobra.Command {
	var date string
	var force bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the daily summary for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GenerateDailySummary(ctx, policy.Actor{Role: domain.RoleAdmin}, date, force)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "summary date YYYY-MM-DD (defaults to today UTC)")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even if a summary exists")
	return cmd
}

func summaryListCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List daily summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, total, err := e.ListSummaries(ctx, repo.SummaryFilters{Page: page, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "total": total})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Updates", "Incidents", "Blockers", "Decisions", "Generated"})
				for _, s := range items {
					tw.AppendRow(table.Row{
						s.ID, s.SummaryDate, s.StatusUpdatesCount, s.IncidentsCount,
						s.BlockersCount, s.DecisionsCount, s.GeneratedAt,
					})
				}
				tw.Render()
				fmt.Printf("%d of %d summaries\n", len(items), total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	conn, cfg, err := app.Bootstrap(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, engine.New(conn, cfg))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
