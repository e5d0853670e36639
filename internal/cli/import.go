package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import blocks from JSON or YAML",
		Long: "Import blocks from a file or stdin. Files ending in .yaml or .yml are read as YAML, " +
			"anything else as the JSON produced by export. Blocks are upserted by canonical name; " +
			"a missing active field means active.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().Bool("yaml", false, "Read stdin as YAML")

	blocksCmd.AddCommand(cmd)
}

// blockDoc is the import shape. Active is a pointer so an omitted field
// can default to true.
type blockDoc struct {
	CanonicalName string `json:"canonical_name" yaml:"canonical_name"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description" yaml:"description"`
	EnergyDelta   int    `json:"energy_delta" yaml:"energy_delta"`
	SafetyDelta   int    `json:"safety_delta" yaml:"safety_delta"`
	MediaURL      string `json:"media_url" yaml:"media_url"`
	MediaType     string `json:"media_type" yaml:"media_type"`
	BlockType     string `json:"block_type" yaml:"block_type"`
	Active        *bool  `json:"active" yaml:"active"`
}

func (d blockDoc) block() model.Block {
	return model.Block{
		CanonicalName: d.CanonicalName,
		Name:          d.Name,
		Description:   d.Description,
		EnergyDelta:   d.EnergyDelta,
		SafetyDelta:   d.SafetyDelta,
		MediaURL:      d.MediaURL,
		MediaType:     d.MediaType,
		BlockType:     d.BlockType,
		Active:        d.Active == nil || *d.Active,
	}
}

func parseBlockDocs(data []byte, asYAML bool) ([]model.Block, error) {
	var docs []blockDoc
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &docs)
	} else {
		err = json.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, err
	}
	blocks := make([]model.Block, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, d.block())
	}
	return blocks, nil
}

func runImport(cmd *cobra.Command, args []string) {
	asYAML, _ := cmd.Flags().GetBool("yaml")

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		ext := strings.ToLower(filepath.Ext(args[0]))
		asYAML = asYAML || ext == ".yaml" || ext == ".yml"
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	blocks, err := parseBlockDocs(data, asYAML)
	if err != nil {
		exitErr("parse blocks", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.ImportBlocks(cmd.Context(), blocks)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
