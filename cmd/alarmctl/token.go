package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"alarmbell-backend/pkg/config"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage this device's push token on the server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <push-token>",
		Short: "Register the device push token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			body, _ := json.Marshal(map[string]string{"token": args[0]})
			return callServer(cmd.Context(), cfg, http.MethodPut, body, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the device push token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return callServer(cmd.Context(), cfg, http.MethodDelete, nil, cmd.OutOrStdout())
		},
	})
	return cmd
}

func callServer(ctx context.Context, cfg *config.AgentConfig, method string, body []byte, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, method, cfg.UI.ServerURL+"/api/push-token", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.UI.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}
	if len(payload) > 0 {
		fmt.Fprintf(out, "%s\n", bytes.TrimSpace(payload))
	}
	return nil
}
