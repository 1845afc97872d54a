package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newIntrospectCmd() *cobra.Command {
	var basicUser, basicPass string

	cmd := &cobra.Command{
		Use:   "introspect <token>",
		Short: "Introspección de un token contra el servidor",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postForm("/oauth/introspect", url.Values{"token": {args[0]}}, basicUser, basicPass)
		},
	}
	cmd.Flags().StringVar(&basicUser, "basic-user", os.Getenv("INTROSPECT_BASIC_USER"), "usuario basic auth del endpoint")
	cmd.Flags().StringVar(&basicPass, "basic-pass", os.Getenv("INTROSPECT_BASIC_PASS"), "password basic auth del endpoint")
	return cmd
}

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoca un token contra el servidor",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return postForm("/oauth/revoke", url.Values{"token": {args[0]}}, "", "")
		},
	}
}

func postForm(path string, form url.Values, basicUser, basicPass string) error {
	endpoint := strings.TrimRight(flagBaseURL, "/") + path
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" || basicPass != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}

	httpc := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var v any
	if json.Unmarshal(body, &v) == nil {
		pretty, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(pretty))
	} else if len(body) > 0 {
		fmt.Println(string(body))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
