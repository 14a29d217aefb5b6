package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/next-gen-ui/ngui-mcp/internal/validation"
)

var (
	componentsDataType string
	componentsJSON     bool
)

// componentsCmd represents the components command
var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the selectable components",
	Long: `List the components the model may choose from, after the agent configuration
for the data type is applied.

Examples:
  # Components allowed globally
  ngui-mcp components

  # Components allowed for one data type, as JSON
  ngui-mcp components --data-type movies --json`,
	RunE: runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)

	componentsCmd.Flags().StringVar(&componentsDataType, "data-type", "", "data type whose configuration applies")
	componentsCmd.Flags().BoolVar(&componentsJSON, "json", false, "print JSON instead of a table")
}

func runComponents(cmd *cobra.Command, args []string) error {
	if err := validation.NewValidator().ValidateName("data_type", componentsDataType); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	components, err := componentLister(resolver).Components(componentsDataType)
	if err != nil {
		return err
	}

	if componentsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"data_type":  componentsDataType,
			"components": components,
			"count":      len(components),
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROLE\tCHART\tDESCRIPTION")
	for _, c := range components {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Role, c.ChartType, c.Description)
	}
	return w.Flush()
}
