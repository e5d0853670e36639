package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rcliao/somi-flow/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog and practice statistics",
		Long:  "Show block and chain counts, total recorded practice time and a per-flow-type breakdown.",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		writeStats(os.Stdout, stats)
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func writeStats(w io.Writer, st *store.Stats) {
	fmt.Fprintf(w, "database   %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	fmt.Fprintf(w, "blocks     %d active / %d total\n", st.ActiveBlocks, st.TotalBlocks)
	fmt.Fprintf(w, "chains     %d (%d check-ins, %d completed blocks)\n",
		st.TotalChains, st.TotalCheckIns, st.CompletedBlocks)
	fmt.Fprintf(w, "practice   %s\n", time.Duration(st.PracticeSeconds)*time.Second)
	for _, ft := range st.FlowTypes {
		fmt.Fprintf(w, "  %-13s %d chains, %d users\n", ft.FlowType, ft.Chains, ft.Users)
	}
}
