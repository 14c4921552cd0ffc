package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/fvc/internal/remote"
	"github.com/kilupskalvis/fvc/internal/remote/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run and administer an fvc-server",
	Long: `Run an fvc-server instance or administer a running one.

The start subcommand serves repositories from a data directory over
HTTP. The tokens and repos subcommands talk to a running server's admin
API and need its URL and admin token, from flags or from the
FVC_SERVER_URL and FVC_ADMIN_TOKEN environment variables.`,
}

var (
	serverAddr      string
	serverDataDir   string
	serverTokenFile string
	serverAdmin     string
)

func init() {
	serverStartCmd.Flags().StringVar(&serverAddr, "addr", envOrDefault("FVC_SERVER_ADDR", ":8420"), "Listen address")
	serverStartCmd.Flags().StringVar(&serverDataDir, "data-dir", envOrDefault("FVC_SERVER_DATA_DIR", defaultDataDir()), "Directory holding repositories")
	serverStartCmd.Flags().StringVar(&serverTokenFile, "token-file", os.Getenv("FVC_SERVER_TOKEN_FILE"), "Path to the token file (default <data-dir>/tokens.json)")
	serverStartCmd.Flags().StringVar(&serverAdmin, "admin-token", os.Getenv("FVC_SERVER_ADMIN_TOKEN"), "Admin API token (admin API disabled when empty)")

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverTokensCmd)
	serverCmd.AddCommand(serverReposCmd)

	serverTokensCmd.AddCommand(serverTokensCreateCmd)
	serverTokensCmd.AddCommand(serverTokensListCmd)
	serverTokensCmd.AddCommand(serverTokensDeleteCmd)

	serverReposCmd.AddCommand(serverReposCreateCmd)
	serverReposCmd.AddCommand(serverReposListCmd)
	serverReposCmd.AddCommand(serverReposDeleteCmd)
	serverReposCmd.AddCommand(serverReposGCCmd)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./fvc-data"
	}
	return filepath.Join(home, ".fvc-server")
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an fvc-server",
	Run:   runServerStart,
}

func runServerStart(cmd *cobra.Command, args []string) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	repos, err := server.NewDiskRepos(serverDataDir)
	if err != nil {
		exitError("%v", err)
	}
	defer repos.Close()

	tokenFile := serverTokenFile
	if tokenFile == "" {
		tokenFile = filepath.Join(serverDataDir, "tokens.json")
	}
	tokens := server.NewFileTokenStore(tokenFile)

	cfg := server.DefaultServerConfig()
	cfg.AdminToken = serverAdmin
	if hooks := os.Getenv("FVC_SERVER_WEBHOOKS"); hooks != "" {
		cfg.Webhooks = strings.Split(hooks, ",")
		cfg.WebhookSecret = os.Getenv("FVC_SERVER_WEBHOOK_SECRET")
	}
	if cfg.AdminToken == "" {
		logger.Warn("no admin token configured, admin API is disabled")
	}

	handler, stop := server.Handler(repos, repos, tokens, cfg, logger)
	defer stop()

	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fvc-server listening", "addr", serverAddr, "data_dir", serverDataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitError("%v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			exitError("shutdown: %v", err)
		}
	}
}

var (
	adminURL   string
	adminToken string
)

func init() {
	for _, cmd := range []*cobra.Command{serverTokensCmd, serverReposCmd} {
		cmd.PersistentFlags().StringVar(&adminURL, "url", "", "Server base URL (or FVC_SERVER_URL)")
		cmd.PersistentFlags().StringVar(&adminToken, "admin-token", "", "Admin token (or FVC_ADMIN_TOKEN)")
	}
}

// resolveAdminClient builds a client for a running server's admin API.
func resolveAdminClient() *remote.AdminClient {
	url := adminURL
	if url == "" {
		url = os.Getenv("FVC_SERVER_URL")
	}
	if url == "" {
		exitError("server URL required: pass --url or set FVC_SERVER_URL")
	}

	token := adminToken
	if token == "" {
		token = os.Getenv("FVC_ADMIN_TOKEN")
	}
	if token == "" {
		exitError("admin token required: pass --admin-token or set FVC_ADMIN_TOKEN")
	}

	return remote.NewAdminClient(url, token)
}

var serverTokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage access tokens on a running server",
}

var (
	tokenDesc       string
	tokenRepos      []string
	tokenPermission string
)

func init() {
	serverTokensCreateCmd.Flags().StringVar(&tokenDesc, "desc", "", "Description for the token")
	serverTokensCreateCmd.Flags().StringSliceVar(&tokenRepos, "repos", []string{"*"}, "Repositories the token may access ('*' for all)")
	serverTokensCreateCmd.Flags().StringVar(&tokenPermission, "permission", "rw", "Permission level: ro or rw")
}

var serverTokensCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new access token",
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		resp, err := client.CreateToken(context.Background(), tokenDesc, tokenRepos, tokenPermission)
		if err != nil {
			exitError("%v", err)
		}

		fmt.Printf("Created token %s (%s, repos: %s)\n", resp.ID, resp.Permission, strings.Join(resp.Repos, ", "))
		fmt.Printf("\n  %s\n\n", resp.Token)
		fmt.Println("Save this token now. It is not stored and cannot be shown again.")
	},
}

var serverTokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access tokens",
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		tokens, err := client.ListTokens(context.Background())
		if err != nil {
			exitError("%v", err)
		}

		for _, t := range tokens {
			fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, t.Permission, strings.Join(t.Repos, ","), t.Description)
		}
	},
}

var serverTokensDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an access token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		if err := client.DeleteToken(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted token %s\n", args[0])
	},
}

var serverReposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage repositories on a running server",
}

var serverReposCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		if err := client.CreateRepo(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Created repository '%s'\n", args[0])
	},
}

var serverReposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories",
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		repos, err := client.ListRepos(context.Background())
		if err != nil {
			exitError("%v", err)
		}
		for _, name := range repos {
			fmt.Println(name)
		}
	},
}

var serverReposDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a repository and all its data",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		if err := client.DeleteRepo(context.Background(), args[0]); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Deleted repository '%s'\n", args[0])
	},
}

var serverReposGCCmd = &cobra.Command{
	Use:   "gc <name>",
	Short: "Delete unreferenced blobs from a repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := resolveAdminClient()

		result, err := client.RunGC(context.Background(), args[0])
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("Scanned %d blob(s), deleted %d, %d still referenced\n",
			result.BlobsScanned, result.BlobsDeleted, result.ReferencedBlobs)
	},
}
