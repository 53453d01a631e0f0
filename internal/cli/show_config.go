package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the merged configuration",
	Long:  `Show configuration after defaults, config file, DOCSIFT_ environment variables and flags are merged. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if file := v.ConfigFileUsed(); file == "" {
			fmt.Fprintln(out, "# no config file loaded (using defaults)")
		} else {
			fmt.Fprintf(out, "# config file: %s\n", file)
		}

		data, err := yaml.Marshal(maskSecrets(v.AllSettings()))
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}

// maskSecrets replaces non-empty *api_key values, recursing into sections.
func maskSecrets(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		switch x := val.(type) {
		case map[string]any:
			out[k] = maskSecrets(x)
		case string:
			if strings.HasSuffix(k, "api_key") && x != "" {
				out[k] = "****"
			} else {
				out[k] = x
			}
		default:
			out[k] = val
		}
	}
	return out
}
