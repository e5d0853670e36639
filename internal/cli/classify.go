package cli

import (
	"fmt"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an energy/safety self-report",
		Long:  "Map a 0-100 energy and safety self-report onto a nervous-system state.",
		Run:   runClassify,
	}

	cmd.Flags().Float64P("energy", "e", 50, "Energy 0-100")
	cmd.Flags().Float64P("safety", "s", 50, "Safety 0-100")

	RootCmd.AddCommand(cmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	energy, _ := cmd.Flags().GetFloat64("energy")
	safety, _ := cmd.Flags().GetFloat64("safety")
	if energy < 0 || energy > 100 || safety < 0 || safety > 100 {
		exitErr("classify", fmt.Errorf("energy and safety must be within 0..100"))
	}

	state := model.ClassifyState(energy, safety)
	if formatFlag == "text" {
		fmt.Println(state)
		return
	}
	fmt.Printf(`{"energy":%g,"safety":%g,"state":%q}`+"\n", energy, safety, state)
}
