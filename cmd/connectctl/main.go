package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("CONNECT_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("CONNECT_ADMIN_KEY", "")
		out     = envOr("CONNECT_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "connectctl",
		Short: "Admin CLI for the platform-connection service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("missing API key (flag --admin-api-key or env CONNECT_ADMIN_KEY)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "admin API base URL (env CONNECT_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "admin API key (env CONNECT_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	cl := &client{BaseURL: baseURL, APIKey: apiKey, OutFormat: out, HTTP: &http.Client{Timeout: 30 * time.Second}}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the admin API is reachable and the key is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/admin/credentials", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("ping failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, []byte(`{"ok":true}`))
			return nil
		},
	}

	credsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage per-platform OAuth app credentials",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered app credentials (secrets are never returned)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/admin/credentials", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list failed: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	var setPlatform, setClientID, setClientSecret, setRedirectURI string
	var setScopes []string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Register or replace a platform's app credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if setPlatform == "" || setClientID == "" || setClientSecret == "" || setRedirectURI == "" {
				return fmt.Errorf("--platform, --client-id, --client-secret and --redirect-uri are required")
			}
			payload, _ := json.Marshal(map[string]any{
				"platform":      setPlatform,
				"client_id":     setClientID,
				"client_secret": setClientSecret,
				"redirect_uri":  setRedirectURI,
				"scopes":        setScopes,
			})
			status, body, err := cl.do("POST", "/admin/credentials", payload)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("set failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	setCmd.Flags().StringVar(&setPlatform, "platform", "", "platform name (twitter|linkedin|facebook|instagram|tiktok|youtube)")
	setCmd.Flags().StringVar(&setClientID, "client-id", "", "OAuth client id")
	setCmd.Flags().StringVar(&setClientSecret, "client-secret", "", "OAuth client secret (encrypted at rest)")
	setCmd.Flags().StringVar(&setRedirectURI, "redirect-uri", "", "registered redirect URI")
	setCmd.Flags().StringSliceVar(&setScopes, "scope", nil, "OAuth scope (repeatable)")

	var delPlatform string
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a platform's app credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if delPlatform == "" {
				return fmt.Errorf("--platform is required")
			}
			status, body, err := cl.do("DELETE", "/admin/credentials/"+delPlatform, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("delete failed: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&delPlatform, "platform", "", "platform name")

	credsCmd.AddCommand(listCmd, setCmd, deleteCmd)
	root.AddCommand(pingCmd, credsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
