package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewAssemblyCommand constructs the `assembly` command group and subcommands.
func NewAssemblyCommand(baseURL BaseURLFunc) *cobra.Command {
	assemblyCmd := &cobra.Command{Use: "assembly", Short: "Assembly operations"}
	assemblyCmd.AddCommand(
		newAssemblyRegisterCommand(baseURL),
		newAssemblyAddActionCommand(baseURL),
		newAssemblyAddBlockCommand(baseURL),
		newAssemblyStateCommand(baseURL),
		newAssemblyResolveCommand(baseURL),
		newAssemblyValidateCommand(baseURL),
	)
	return assemblyCmd
}

func newAssemblyRegisterCommand(baseURL BaseURLFunc) *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register an assembly on its topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			name, _ := cmd.Flags().GetString("name")
			version, _ := cmd.Flags().GetString("version")
			description, _ := cmd.Flags().GetString("description")
			tags, _ := cmd.Flags().GetString("tags")
			if name == "" || version == "" {
				return fmt.Errorf("--name and --version are required")
			}
			register := map[string]any{"name": name, "version": version}
			if description != "" {
				register["description"] = description
			}
			if tags != "" {
				register["tags"] = strings.Split(tags, ",")
			}
			out, err := postJSON(baseURL, "/v1/assemblies/op", map[string]any{"topic_id": topic, "register": register})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	registerCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	registerCmd.Flags().String("name", "", "Assembly name")
	registerCmd.Flags().String("version", "", "Assembly version")
	registerCmd.Flags().String("description", "", "Assembly description")
	registerCmd.Flags().String("tags", "", "Comma-separated tags")
	return registerCmd
}

func newAssemblyAddActionCommand(baseURL BaseURLFunc) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add-action",
		Short: "Add an action reference to an assembly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			ref, _ := cmd.Flags().GetString("ref")
			alias, _ := cmd.Flags().GetString("alias")
			configJSON, _ := cmd.Flags().GetString("config")
			if ref == "" || alias == "" {
				return fmt.Errorf("--ref and --alias are required")
			}
			action := map[string]any{"t_id": ref, "alias": alias}
			if configJSON != "" {
				var cfg map[string]any
				if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
					return fmt.Errorf("invalid --config JSON: %w", err)
				}
				action["config"] = cfg
			}
			out, err := postJSON(baseURL, "/v1/assemblies/op", map[string]any{"topic_id": topic, "add_action": action})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	addCmd.Flags().String("ref", "", "Topic id of the action registration")
	addCmd.Flags().String("alias", "", "Local alias blocks bind against")
	addCmd.Flags().String("config", "", "Action config as a JSON object")
	return addCmd
}

func newAssemblyAddBlockCommand(baseURL BaseURLFunc) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add-block",
		Short: "Add a block reference to an assembly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			ref, _ := cmd.Flags().GetString("ref")
			bindingsJSON, _ := cmd.Flags().GetString("actions")
			attributesJSON, _ := cmd.Flags().GetString("attributes")
			children, _ := cmd.Flags().GetString("children")
			if ref == "" {
				return fmt.Errorf("--ref is required")
			}
			block := map[string]any{"t_id": ref}
			if bindingsJSON != "" {
				var bindings map[string]string
				if err := json.Unmarshal([]byte(bindingsJSON), &bindings); err != nil {
					return fmt.Errorf("invalid --actions JSON: %w", err)
				}
				block["actions"] = bindings
			}
			if attributesJSON != "" {
				var attrs map[string]any
				if err := json.Unmarshal([]byte(attributesJSON), &attrs); err != nil {
					return fmt.Errorf("invalid --attributes JSON: %w", err)
				}
				block["attributes"] = attrs
			}
			if children != "" {
				block["children"] = strings.Split(children, ",")
			}
			out, err := postJSON(baseURL, "/v1/assemblies/op", map[string]any{"topic_id": topic, "add_block": block})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	addCmd.Flags().String("ref", "", "Topic id of the block registration")
	addCmd.Flags().String("actions", "", "Action bindings as a JSON object (template alias -> assembly action)")
	addCmd.Flags().String("attributes", "", "Attribute overrides as a JSON object")
	addCmd.Flags().String("children", "", "Comma-separated child block references")
	return addCmd
}

func newAssemblyStateCommand(baseURL BaseURLFunc) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Show the folded state of an assembly topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			out, err := getJSON(baseURL, "/v1/assemblies/state?topic="+url.QueryEscape(topic))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	stateCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	return stateCmd
}

func newAssemblyResolveCommand(baseURL BaseURLFunc) *cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Load an assembly and resolve all of its references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			out, err := getJSON(baseURL, "/v1/assemblies/resolve?topic="+url.QueryEscape(topic))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	resolveCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	return resolveCmd
}

func newAssemblyValidateCommand(baseURL BaseURLFunc) *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the composition graph of an assembly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			out, err := getJSON(baseURL, "/v1/assemblies/validate?topic="+url.QueryEscape(topic))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	validateCmd.Flags().String("topic", "", "Assembly topic (defaults to the server's own)")
	return validateCmd
}
