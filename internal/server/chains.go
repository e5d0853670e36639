package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rcliao/somi-flow/internal/model"
	"github.com/rcliao/somi-flow/internal/store"
)

type checkInBody struct {
	Kind    string   `json:"kind"`
	Energy  float64  `json:"energy"`
	Safety  float64  `json:"safety"`
	Journal string   `json:"journal,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

func (b checkInBody) params() (store.CheckInParams, error) {
	switch b.Kind {
	case model.CheckInEntry, model.CheckInExit:
	default:
		return store.CheckInParams{}, fmt.Errorf("%w: check-in kind must be entry or exit, got %q", errBadRequest, b.Kind)
	}
	return store.CheckInParams{
		Kind:       b.Kind,
		Embodiment: model.Embodiment{Energy: b.Energy, Safety: b.Safety, Journal: b.Journal, Tags: b.Tags},
	}, nil
}

type blockBody struct {
	BlockID        string        `json:"block_id"`
	ElapsedSeconds int           `json:"elapsed_seconds"`
	OrderIndex     int           `json:"order_index"`
	Section        model.Section `json:"section"`
}

func (b blockBody) params() (store.BlockEntryParams, error) {
	if b.BlockID == "" {
		return store.BlockEntryParams{}, fmt.Errorf("%w: block_id is required", errBadRequest)
	}
	if !model.ValidSections[b.Section] {
		return store.BlockEntryParams{}, fmt.Errorf("%w: unknown section %q", errBadRequest, b.Section)
	}
	if b.ElapsedSeconds < 0 || b.OrderIndex < 0 {
		return store.BlockEntryParams{}, fmt.Errorf("%w: elapsed_seconds and order_index must be non-negative", errBadRequest)
	}
	return store.BlockEntryParams{
		BlockID:        b.BlockID,
		ElapsedSeconds: b.ElapsedSeconds,
		OrderIndex:     b.OrderIndex,
		Section:        b.Section,
	}, nil
}

func parseFlowType(s string) (model.FlowType, error) {
	ft := model.FlowType(s)
	if !model.ValidFlowTypes[ft] {
		return "", fmt.Errorf("%w: flow_type must be daily_flow or quick_routine, got %q", errBadRequest, s)
	}
	return ft, nil
}

func (s *Server) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FlowType string `json:"flow_type"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.FlowType == "" {
		body.FlowType = string(model.FlowQuick)
	}
	ft, err := parseFlowType(body.FlowType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.store.CreateChain(r.Context(), store.CreateChainParams{
		UserID:   UserFromContext(r.Context()),
		FlowType: ft,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCommitChain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FlowType string        `json:"flow_type"`
		CheckIns []checkInBody `json:"check_ins"`
		Blocks   []blockBody   `json:"blocks"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.FlowType == "" {
		body.FlowType = string(model.FlowDaily)
	}
	ft, err := parseFlowType(body.FlowType)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p := store.CommitChainParams{UserID: UserFromContext(r.Context()), FlowType: ft}
	for _, ci := range body.CheckIns {
		cp, err := ci.params()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		p.CheckIns = append(p.CheckIns, cp)
	}
	for _, b := range body.Blocks {
		bp, err := b.params()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		p.Blocks = append(p.Blocks, bp)
	}

	c, err := s.store.CommitChain(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := store.ListChainsParams{UserID: UserFromContext(r.Context())}
	if v := q.Get("flow_type"); v != "" {
		ft, err := parseFlowType(v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		p.FlowType = ft
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		p.Limit = n
	}

	chains, err := s.store.ListChains(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if chains == nil {
		chains = []model.Chain{}
	}
	writeJSON(w, http.StatusOK, chains)
}

// ownedChain loads a chain and hides chains of other users as not found.
func (s *Server) ownedChain(ctx context.Context, id string) (*model.Chain, error) {
	c, err := s.store.GetChain(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != UserFromContext(ctx) {
		return nil, fmt.Errorf("chain %s: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChain(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteChain(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.ownedChain(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteChain(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendCheckIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body checkInBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := body.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.ownedChain(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.store.AppendCheckIn(r.Context(), id, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleAppendBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body blockBody
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := body.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.ownedChain(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.store.AppendBlock(r.Context(), id, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
