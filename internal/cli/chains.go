package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/store"
	"github.com/spf13/cobra"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "Inspect recorded practice chains",
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List chains, newest first",
		Run:   runChainsList,
	}
	list.Flags().StringP("user", "u", "", "Filter by user id")
	list.Flags().String("flow-type", "", "Filter by flow type: daily_flow or quick_routine")
	list.Flags().IntP("limit", "l", 20, "Max results")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a chain with its check-ins and blocks",
		Args:  cobra.ExactArgs(1),
		Run:   runChainsGet,
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a chain and its entries",
		Args:  cobra.ExactArgs(1),
		Run:   runChainsRm,
	}

	chainsCmd.AddCommand(list, get, rm)
	RootCmd.AddCommand(chainsCmd)
}

func runChainsList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	flowType, _ := cmd.Flags().GetString("flow-type")
	limit, _ := cmd.Flags().GetInt("limit")

	if flowType != "" && !model.ValidFlowTypes[model.FlowType(flowType)] {
		exitErr("list", fmt.Errorf("invalid flow type %q (valid: daily_flow, quick_routine)", flowType))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	chains, err := s.ListChains(cmd.Context(), store.ListChainsParams{
		UserID:   user,
		FlowType: model.FlowType(flowType),
		Limit:    limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, c := range chains {
			fmt.Printf("%s  %s  %-13s %s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.FlowType, c.UserID)
		}
		return
	}
	if len(chains) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(chains, "", "  ")
	fmt.Println(string(b))
}

func runChainsGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := s.GetChain(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	b, _ := json.MarshalIndent(c, "", "  ")
	fmt.Println(string(b))
}

func runChainsRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeleteChain(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}
