package main

import (
	"bufio"
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

type addOptions struct {
	api      string
	key      string
	name     string
	login    string
	password string
}

var addOpts addOptions

var addCmd = &cobra.Command{
	Use:   "add [TARGET]",
	Short: "Register a target with a running liveprobe API",
	Long: `Register TARGET with the API at --api. Without TARGET the URL is read
from stdin. The API probes the target once and prints the result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		} else {
			fmt.Fprint(cmd.OutOrStdout(), "Enter a target to monitor (e.g., nats://broker:4222): ")
			raw, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			target = raw
		}
		client := &http.Client{Timeout: 30 * time.Second}
		return addTarget(cmd.OutOrStdout(), client, strings.TrimSpace(target), addOpts)
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addOpts.api, "api", envOr("LIVEPROBE_API_BASE", "http://localhost:8080"), "base URL of the liveprobe API")
	f.StringVar(&addOpts.key, "key", os.Getenv("LIVEPROBE_API_KEY"), "admin API key")
	f.StringVar(&addOpts.name, "name", "", "display name")
	f.StringVar(&addOpts.login, "login", "", "login the probe authenticates with")
	f.StringVar(&addOpts.password, "password", "", "password the probe authenticates with")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func addTarget(out io.Writer, client *http.Client, target string, o addOptions) error {
	if target == "" {
		return fmt.Errorf("no target given")
	}
	body, err := json.Marshal(map[string]string{
		"url":      target,
		"name":     o.name,
		"login":    o.login,
		"password": o.password,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(o.api, "/")+"/api/targets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.key != "" {
		req.Header.Set("X-API-Key", o.key)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("API returned %s: %s", resp.Status, e.Error)
	}

	var added struct {
		Target struct {
			ID string `json:"id"`
		} `json:"target"`
		Status struct {
			Status      string `json:"status"`
			Description string `json:"description"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	fmt.Fprintf(out, "Added %s as %s: %s %s\n", target, added.Target.ID, added.Status.Status, added.Status.Description)
	return nil
}
