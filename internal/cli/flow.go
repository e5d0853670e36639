package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/somi-flow/internal/flow"
	"github.com/rcliao/somi-flow/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Generate a practice flow",
		Long:  "Generate a segment timeline for a nervous-system state and duration. Pass --ai to try the configured planner first.",
		Run:   runFlow,
	}

	addFlowFlags(cmd)

	RootCmd.AddCommand(cmd)
}

// addFlowFlags registers the flow request flags shared by flow and play.
func addFlowFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("state", "s", "", "Nervous-system state: shutdown, restful, wired, glowing, steady (required)")
	cmd.Flags().IntP("minutes", "m", 10, "Requested duration in minutes (1-60)")
	cmd.Flags().Bool("scan-start", false, "Open with a body scan (8+ minutes only)")
	cmd.Flags().Bool("scan-end", false, "Close with a body scan (8+ minutes only)")
	cmd.Flags().Bool("ai", false, "Ask the generative planner first")
	cmd.Flags().String("intensity", "", "Planner intensity hint (default: moderate)")
	cmd.Flags().Int("hour", -1, "Local hour 0-23 for the planner (default: unset)")

	cmd.MarkFlagRequired("state")
}

func flowRequest(cmd *cobra.Command) flow.Request {
	state, _ := cmd.Flags().GetString("state")
	minutes, _ := cmd.Flags().GetInt("minutes")
	scanStart, _ := cmd.Flags().GetBool("scan-start")
	scanEnd, _ := cmd.Flags().GetBool("scan-end")
	useAI, _ := cmd.Flags().GetBool("ai")
	intensity, _ := cmd.Flags().GetString("intensity")
	hour, _ := cmd.Flags().GetInt("hour")

	req := flow.Request{
		State:           model.TargetState(state),
		DurationMinutes: minutes,
		BodyScanStart:   scanStart,
		BodyScanEnd:     scanEnd,
		UseAI:           useAI,
		Intensity:       intensity,
	}
	if hour >= 0 {
		req.LocalHour = &hour
	}
	return req
}

func generateFlow(cmd *cobra.Command) *flow.Result {
	req := flowRequest(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc, err := newFlowService(s, logger)
	if err != nil {
		exitErr("planner", err)
	}
	res, err := svc.Generate(cmd.Context(), req)
	if err != nil {
		exitErr("flow", err)
	}
	return res
}

func runFlow(cmd *cobra.Command, args []string) {
	res := generateFlow(cmd)

	if formatFlag == "text" {
		fmt.Print(formatTimeline(res))
		return
	}
	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}

func formatTimeline(res *flow.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s flow, %d blocks, %ds\n\n",
		res.Kind, res.BlockCount, res.Timeline.ActualDurationSeconds)
	offset := 0
	for i, seg := range res.Timeline.Segments {
		label := string(seg.Type)
		if seg.Type == model.SegmentSomiBlock {
			label = seg.Name
		}
		fmt.Fprintf(&sb, "%2d  %02d:%02d  %-12s %s\n", i, offset/60, offset%60, seg.Section, label)
		offset += seg.DurationSeconds
	}
	fmt.Fprintf(&sb, "\n%s\n", res.Reasoning)
	return sb.String()
}
