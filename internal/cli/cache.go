package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// defaultServerAddr is where the cache subcommands look for a running
// server unless --addr says otherwise.
const defaultServerAddr = "http://localhost:8000"

// newCacheCmd creates the "cache" subcommand group operating the cache of
// a running server over its management endpoints.
func newCacheCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the cache of a running server",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", defaultServerAddr, "base URL of the running server")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print cache statistics",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return callManagement(cmd, http.MethodGet, addr, "cache/stats")
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cache entry",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return callManagement(cmd, http.MethodDelete, addr, "cache/clear")
			},
		},
		&cobra.Command{
			Use:   "clear-expired",
			Short: "Remove only expired cache entries",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return callManagement(cmd, http.MethodDelete, addr, "cache/expired")
			},
		},
	)
	return cmd
}

// callManagement hits one management endpoint and prints the JSON body.
func callManagement(cmd *cobra.Command, method, addr, path string) error {
	url := strings.TrimSuffix(addr, "/") + "/" + apiPrefix + "/" + path

	req, err := http.NewRequestWithContext(cmd.Context(), method, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	cmd.Println(strings.TrimSpace(string(body)))
	return nil
}
