package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/somi-flow/internal/store"
	"github.com/spf13/cobra"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Manage the block catalog",
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog blocks",
		Long:  "List blocks. By default only the active video vagal_toning blocks flows are built from.",
		Run:   runBlocksList,
	}
	list.Flags().Bool("all", false, "Include inactive blocks and every media/block type")
	list.Flags().String("media-type", "", "Filter by media type")
	list.Flags().String("block-type", "", "Filter by block type")
	list.Flags().Bool("names-only", false, "Only output canonical names")

	put := &cobra.Command{
		Use:   "put",
		Short: "Create or update a block",
		Long:  "Create or update a block keyed by canonical name.",
		Run:   runBlocksPut,
	}
	put.Flags().StringP("name", "n", "", "Canonical name (required)")
	put.Flags().String("title", "", "Display name (default: canonical name)")
	put.Flags().String("description", "", "Description")
	put.Flags().Int("energy", 0, "Energy delta")
	put.Flags().Int("safety", 0, "Safety delta")
	put.Flags().String("media-url", "", "Media URL")
	put.Flags().String("media-type", "", "Media type (default: video)")
	put.Flags().String("block-type", "", "Block type (default: vagal_toning)")
	put.Flags().Bool("inactive", false, "Store the block as inactive")
	put.MarkFlagRequired("name")

	get := &cobra.Command{
		Use:   "get <id|canonical-name>",
		Short: "Show one block",
		Args:  cobra.ExactArgs(1),
		Run:   runBlocksGet,
	}

	blocksCmd.AddCommand(list, put, get)
	RootCmd.AddCommand(blocksCmd)
}

func runBlocksList(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	mediaType, _ := cmd.Flags().GetString("media-type")
	blockType, _ := cmd.Flags().GetString("block-type")
	namesOnly, _ := cmd.Flags().GetBool("names-only")

	p := store.CatalogQuery()
	if all {
		p = store.ListBlocksParams{}
	}
	if mediaType != "" {
		p.MediaType = mediaType
	}
	if blockType != "" {
		p.BlockType = blockType
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	blocks, err := s.ListBlocks(cmd.Context(), p)
	if err != nil {
		exitErr("list", err)
	}

	if namesOnly || formatFlag == "text" {
		for _, b := range blocks {
			fmt.Println(b.CanonicalName)
		}
		return
	}
	if len(blocks) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(blocks, "", "  ")
	fmt.Println(string(b))
}

func runBlocksPut(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	energy, _ := cmd.Flags().GetInt("energy")
	safety, _ := cmd.Flags().GetInt("safety")
	mediaURL, _ := cmd.Flags().GetString("media-url")
	mediaType, _ := cmd.Flags().GetString("media-type")
	blockType, _ := cmd.Flags().GetString("block-type")
	inactive, _ := cmd.Flags().GetBool("inactive")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.UpsertBlock(cmd.Context(), store.UpsertBlockParams{
		CanonicalName: name,
		Name:          title,
		Description:   description,
		EnergyDelta:   energy,
		SafetyDelta:   safety,
		MediaURL:      mediaURL,
		MediaType:     mediaType,
		BlockType:     blockType,
		Active:        !inactive,
	})
	if err != nil {
		exitErr("put", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"canonical_name":%q}`+"\n", b.ID, b.CanonicalName)
}

func runBlocksGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.GetBlock(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	out, _ := json.MarshalIndent(b, "", "  ")
	fmt.Println(string(out))
}
