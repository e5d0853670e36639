package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/somi-flow/internal/chain"
	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a generated flow on a simulated clock",
		Long: "Generate a flow, run it through the session driver on a simulated clock and record it. " +
			"Daily flows are committed as one chain after the exit check-in; quick routines are written as they play.",
		Run: runPlay,
	}

	addFlowFlags(cmd)
	cmd.Flags().String("flow-type", string(model.FlowDaily), "daily_flow or quick_routine")
	cmd.Flags().StringP("user", "u", "local", "User id to record under")
	cmd.Flags().Float64("entry-energy", 50, "Entry check-in energy 0-100")
	cmd.Flags().Float64("entry-safety", 50, "Entry check-in safety 0-100")
	cmd.Flags().Float64("exit-energy", 50, "Exit check-in energy 0-100")
	cmd.Flags().Float64("exit-safety", 50, "Exit check-in safety 0-100")
	cmd.Flags().String("journal", "", "Exit check-in journal")
	cmd.Flags().Bool("skip-exit", false, "Leave out the exit check-in; a completed flow is recorded without it")
	cmd.Flags().Duration("step", time.Second, "Simulated tick interval")
	cmd.Flags().Duration("abandon-after", 0, "Abandon after this much simulated time (0: play to the end)")

	RootCmd.AddCommand(cmd)
}

type simClock struct{ now time.Time }

func (c *simClock) Now() time.Time { return c.now }

func runPlay(cmd *cobra.Command, args []string) {
	flowType, _ := cmd.Flags().GetString("flow-type")
	user, _ := cmd.Flags().GetString("user")
	entryEnergy, _ := cmd.Flags().GetFloat64("entry-energy")
	entrySafety, _ := cmd.Flags().GetFloat64("entry-safety")
	exitEnergy, _ := cmd.Flags().GetFloat64("exit-energy")
	exitSafety, _ := cmd.Flags().GetFloat64("exit-safety")
	journal, _ := cmd.Flags().GetString("journal")
	skipExit, _ := cmd.Flags().GetBool("skip-exit")
	step, _ := cmd.Flags().GetDuration("step")
	abandonAfter, _ := cmd.Flags().GetDuration("abandon-after")
	if step <= 0 {
		exitErr("play", fmt.Errorf("--step must be positive"))
	}

	res := generateFlow(cmd)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ft := model.FlowType(flowType)
	rec, err := chain.New(ft, s, chain.NewCache(), chain.WithLogger(logger))
	if err != nil {
		exitErr("play", err)
	}
	sink := chain.NewSessionSink(cmd.Context(), rec, user, chain.WithLogger(logger))

	clock := &simClock{now: time.Now()}
	start := clock.now
	printer := session.SinkFunc(func(ev session.Event) {
		sink.Handle(ev)
		if formatFlag == "text" {
			fmt.Println(formatEvent(clock.now.Sub(start), ev))
		}
	})

	d := session.NewDriver(res.Timeline, session.Options{
		FlowType:   ft,
		Entry:      model.Embodiment{Energy: entryEnergy, Safety: entrySafety},
		MusicLevel: cfg.Session.MusicLevel,
	}, clock, printer)

	for !d.State().Terminal() {
		if abandonAfter > 0 && clock.now.Sub(start) >= abandonAfter {
			d.Abandon()
			break
		}
		clock.now = clock.now.Add(step)
		d.Tick()
	}

	st := d.State()
	if st.Status == session.StatusCompleted && !skipExit {
		d.CheckIn(model.Embodiment{Energy: exitEnergy, Safety: exitSafety, Journal: journal})
	}
	if err := sink.Err(); err != nil {
		exitErr("record", err)
	}
	if _, err := sink.Close(); err != nil {
		exitErr("record", err)
	}

	out := struct {
		SessionID string         `json:"session_id"`
		Status    session.Status `json:"status"`
		Kind      string         `json:"kind"`
		Chain     *model.Chain   `json:"chain,omitempty"`
	}{SessionID: st.ID, Status: st.Status, Kind: string(res.Kind), Chain: sink.Chain()}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func formatEvent(at time.Duration, ev session.Event) string {
	secs := int(at / time.Second)
	prefix := fmt.Sprintf("%02d:%02d  %-18s", secs/60, secs%60, ev.Type)
	switch ev.Type {
	case session.EventSegmentStarted:
		return fmt.Sprintf("%s #%d %s %s", prefix, ev.Cycle, ev.Segment.Type, ev.Segment.Name)
	case session.EventSegmentCompleted:
		return fmt.Sprintf("%s #%d %s (%s, %ds)", prefix, ev.Cycle, ev.Segment.Type, ev.Reason, ev.ElapsedSeconds())
	case session.EventMusicLevel:
		return fmt.Sprintf("%s %.2f", prefix, ev.MusicLevel)
	case session.EventCheckIn:
		return fmt.Sprintf("%s %s energy=%g safety=%g", prefix, ev.CheckInKind, ev.Embodiment.Energy, ev.Embodiment.Safety)
	default:
		return prefix
	}
}
