package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every block",
		Long:  "Export the whole catalog, inactive blocks included, as JSON or, with --yaml, YAML.",
		Run:   runExport,
	}

	cmd.Flags().Bool("yaml", false, "Write YAML instead of JSON")

	blocksCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	asYAML, _ := cmd.Flags().GetBool("yaml")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	blocks, err := s.ExportBlocks(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(blocks); err != nil {
			exitErr("encode yaml", err)
		}
		enc.Close()
		return
	}
	b, _ := json.MarshalIndent(blocks, "", "  ")
	fmt.Println(string(b))
}
