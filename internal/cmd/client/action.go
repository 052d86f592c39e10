package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// NewActionCommand constructs the `action` command group and subcommands.
func NewActionCommand(baseURL BaseURLFunc) *cobra.Command {
	actionCmd := &cobra.Command{Use: "action", Short: "Action registry operations"}
	actionCmd.AddCommand(
		newActionRegisterCommand(baseURL),
		newActionGetCommand(baseURL),
		newActionListCommand(baseURL),
		newActionInfoCommand(baseURL),
	)
	return actionCmd
}

func newActionRegisterCommand(baseURL BaseURLFunc) *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a WASM module from local files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wasmPath, _ := cmd.Flags().GetString("wasm")
			infoPath, _ := cmd.Flags().GetString("info")
			if wasmPath == "" || infoPath == "" {
				return fmt.Errorf("--wasm and --info are required")
			}
			wasm, err := os.ReadFile(wasmPath)
			if err != nil {
				return err
			}
			infoRaw, err := os.ReadFile(infoPath)
			if err != nil {
				return err
			}
			var info map[string]any
			if err := json.Unmarshal(infoRaw, &info); err != nil {
				return fmt.Errorf("invalid module info JSON: %w", err)
			}
			out, err := postJSON(baseURL, "/v1/actions/register", map[string]any{"wasm": wasm, "info": info})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	registerCmd.Flags().String("wasm", "", "Path to the WASM binary")
	registerCmd.Flags().String("info", "", "Path to the module info JSON")
	return registerCmd
}

func newActionGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a registration by module-info hash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, _ := cmd.Flags().GetString("hash")
			if hash == "" {
				return fmt.Errorf("--hash is required")
			}
			out, err := getJSON(baseURL, "/v1/actions/get?hash="+url.QueryEscape(hash))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	getCmd.Flags().String("hash", "", "Module info hash (sha256 hex)")
	return getCmd
}

func newActionListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if submitter, _ := cmd.Flags().GetString("submitter"); submitter != "" {
				q.Set("submitter", submitter)
			}
			if expr, _ := cmd.Flags().GetString("filter"); expr != "" {
				q.Set("expr", expr)
			}
			path := "/v1/actions/list"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			out, err := getJSON(baseURL, path)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out["actions"])
			return nil
		},
	}
	listCmd.Flags().String("submitter", "", "Filter by submitter identity")
	listCmd.Flags().String("filter", "", "CEL filter expression")
	return listCmd
}

func newActionInfoCommand(baseURL BaseURLFunc) *cobra.Command {
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Fetch the stored module info for a registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, _ := cmd.Flags().GetString("hash")
			if hash == "" {
				return fmt.Errorf("--hash is required")
			}
			out, err := getJSON(baseURL, "/v1/actions/info?hash="+url.QueryEscape(hash))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	infoCmd.Flags().String("hash", "", "Module info hash (sha256 hex)")
	return infoCmd
}
