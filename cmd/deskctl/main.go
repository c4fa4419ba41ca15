// Package main implements the deskctl CLI for manual operations against
// the frontdeskd dashboard API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the frontdeskd dashboard API
	serverURL string
	// version information
	version = "dev"
)

const requestTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deskctl",
	Short: "CLI for frontdeskd dashboard operations",
	Long: `deskctl is a command-line interface for the frontdeskd dashboard API.
It lets a supervisor inspect pending help requests, answer them, and
review learned knowledge and stats from a terminal.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "frontdeskd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(statsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check frontdeskd server health",
	RunE:  runHealth,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending help requests",
	Long: `List help requests waiting for a supervisor answer, newest first.

Examples:
  deskctl pending
  deskctl pending --server http://localhost:9000`,
	RunE: runPending,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <request-id> <answer>",
	Short: "Answer a pending help request",
	Long: `Answer a pending help request. The answer is sent to the caller and
learned into the knowledge base.

Examples:
  deskctl resolve 7c9e6679-7425-40de-944b-e07fc1f90ae7 "Yes, we do bridal parties"
  deskctl resolve --resolver Dana 7c9e6679 "Yes, ask for a quote"`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "List learned knowledge entries",
	RunE:  runKnowledge,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show help request statistics",
	RunE:  runStats,
}

var resolverName string

func init() {
	resolveCmd.Flags().StringVar(&resolverName, "resolver", "", "name recorded as the resolver")
}

// ResolveRequest matches internal/dashboard/server.go ResolveRequest
type ResolveRequest struct {
	Answer       string `json:"answer"`
	ResolverName string `json:"resolver_name"`
}

// HealthResponse matches internal/dashboard/server.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	body, err := httpGet("/health")
	if err != nil {
		return err
	}

	var resp HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Server: %s\nStatus: %s\n", serverURL, resp.Status)
	return nil
}

func runPending(cmd *cobra.Command, args []string) error {
	body, err := httpGet("/api/v1/requests/pending")
	if err != nil {
		return err
	}
	return printJSON(body)
}

func runResolve(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(ResolveRequest{
		Answer:       args[1],
		ResolverName: resolverName,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := httpPost("/api/v1/requests/"+args[0]+"/resolve", payload)
	if err != nil {
		return err
	}
	return printJSON(body)
}

func runKnowledge(cmd *cobra.Command, args []string) error {
	body, err := httpGet("/api/v1/knowledge")
	if err != nil {
		return err
	}
	return printJSON(body)
}

func runStats(cmd *cobra.Command, args []string) error {
	body, err := httpGet("/api/v1/stats")
	if err != nil {
		return err
	}
	return printJSON(body)
}

func httpGet(path string) ([]byte, error) {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func httpPost(path string, payload []byte) ([]byte, error) {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to reach server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return body, nil
}

// printJSON pretty-prints a JSON response body.
func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
