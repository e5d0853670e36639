package server

import (
	"fmt"
	"net/http"

	"github.com/rcliao/somi-flow/internal/flow"
	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/store"
)

type createFlowRequest struct {
	PolyvagalState  string `json:"polyvagal_state"`
	DurationMinutes *int   `json:"duration_minutes"`
	BodyScanStart   bool   `json:"body_scan_start"`
	BodyScanEnd     bool   `json:"body_scan_end"`
	UseAI           bool   `json:"use_ai"`
	Intensity       string `json:"intensity,omitempty"`
	LocalHour       *int   `json:"local_hour,omitempty"`
}

type flowResponse struct {
	Segments              []model.Segment `json:"segments"`
	ActualDurationSeconds int             `json:"actual_duration_seconds"`
	BlockCount            int             `json:"block_count"`
	Kind                  flow.Kind       `json:"kind"`
	Reasoning             string          `json:"reasoning"`
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var body createFlowRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.PolyvagalState == "" {
		s.fail(w, r, fmt.Errorf("%w: polyvagal_state is required", flow.ErrInvalidRequest))
		return
	}
	if body.DurationMinutes == nil {
		s.fail(w, r, fmt.Errorf("%w: duration_minutes is required", flow.ErrInvalidRequest))
		return
	}

	req := flow.Request{
		State:           model.TargetState(body.PolyvagalState),
		DurationMinutes: *body.DurationMinutes,
		BodyScanStart:   body.BodyScanStart,
		BodyScanEnd:     body.BodyScanEnd,
		UseAI:           body.UseAI,
		Intensity:       body.Intensity,
		LocalHour:       body.LocalHour,
	}
	res, err := s.flows.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.observeFlow(req, res)

	segments := res.Timeline.Segments
	if segments == nil {
		segments = []model.Segment{}
	}
	writeJSON(w, http.StatusOK, flowResponse{
		Segments:              segments,
		ActualDurationSeconds: res.Timeline.ActualDurationSeconds,
		BlockCount:            res.BlockCount,
		Kind:                  res.Kind,
		Reasoning:             res.Reasoning,
	})
}

type swapBlockRequest struct {
	Timeline     model.Timeline `json:"timeline"`
	SegmentIndex int            `json:"segment_index"`
	// Block is an id or canonical name.
	Block string `json:"block"`
}

func (s *Server) handleSwapBlock(w http.ResponseWriter, r *http.Request) {
	var body swapBlockRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Block == "" {
		s.fail(w, r, fmt.Errorf("%w: block is required", errBadRequest))
		return
	}
	b, err := s.store.GetBlock(r.Context(), body.Block)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tl, err := flow.SwapBlock(body.Timeline, body.SegmentIndex, *b)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.store.ListBlocks(r.Context(), store.CatalogQuery())
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", flow.ErrCatalogUnavailable, err))
		return
	}
	if blocks == nil {
		blocks = []model.Block{}
	}
	writeJSON(w, http.StatusOK, blocks)
}
