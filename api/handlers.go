// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/microchain"
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/query"
	"github.com/blinklabs-io/microchain/types"
)

// maxRequestBodySize limits submitted blocks
const maxRequestBodySize = 8 << 20

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// view runs fn against the contract state. The query views are only valid
// inside fn, so responses are built there.
func (s *Server) view(fn func(*query.Query) error) error {
	return s.indexer.View(fn)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parsePage reads the range and connection arguments of a paged request
func parsePage[K any](
	w http.ResponseWriter,
	r *http.Request,
	parseRange func(*http.Request) (query.Range[K], error),
) (query.Range[K], query.ConnectionArgs, bool) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return rng, query.ConnectionArgs{}, false
	}
	args, err := ParseConnectionArgs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return rng, args, false
	}
	return rng, args, true
}

// handleHealth handles GET /health
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	status := s.indexer.Status()
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy:    true,
		Head:         status.Head,
		Irreversible: status.Irreversible,
	})
}

// handleStatus handles GET /api/v1/status and returns the community status
// set up by the genesis action
func (s *Server) handleStatus(
	w http.ResponseWriter,
	_ *http.Request,
) {
	var ret *StatusResponse
	_ = s.view(func(q *query.Query) error {
		if status := q.Status(); status != nil {
			tmp := newStatusResponse(status)
			ret = &tmp
		}
		return nil
	})
	if ret == nil {
		writeError(w, http.StatusNotFound, "genesis has not been applied")
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleMembers handles GET /api/v1/members
func (s *Server) handleMembers(
	w http.ResponseWriter,
	r *http.Request,
) {
	rng, args, ok := parsePage(w, r, ParseNameRange)
	if !ok {
		return
	}
	var ret Connection[MemberResponse]
	_ = s.view(func(q *query.Query) error {
		ret = makeConnection(q.Members(rng, args), newMemberResponse)
		return nil
	})
	writeJSON(w, http.StatusOK, ret)
}

func parseAccount(w http.ResponseWriter, r *http.Request) (types.Name, bool) {
	name, err := types.NewName(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account: "+err.Error())
		return 0, false
	}
	return name, true
}

// handleMember handles GET /api/v1/members/{account}
func (s *Server) handleMember(
	w http.ResponseWriter,
	r *http.Request,
) {
	name, ok := parseAccount(w, r)
	if !ok {
		return
	}
	var ret *MemberResponse
	_ = s.view(func(q *query.Query) error {
		if m := q.Member(name); m != nil {
			tmp := newMemberResponse(m)
			ret = &tmp
		}
		return nil
	})
	if ret == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleMemberElections handles GET /api/v1/members/{account}/elections
func (s *Server) handleMemberElections(
	w http.ResponseWriter,
	r *http.Request,
) {
	name, ok := parseAccount(w, r)
	if !ok {
		return
	}
	rng, args, ok := parsePage(w, r, ParseTimeRange)
	if !ok {
		return
	}
	var ret *Connection[MemberElectionResponse]
	_ = s.view(func(q *query.Query) error {
		m := q.Member(name)
		if m == nil {
			return nil
		}
		tmp := makeConnection(m.Elections(rng, args), newMemberElectionResponse)
		ret = &tmp
		return nil
	})
	if ret == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleElections handles GET /api/v1/elections
func (s *Server) handleElections(
	w http.ResponseWriter,
	r *http.Request,
) {
	rng, args, ok := parsePage(w, r, ParseTimeRange)
	if !ok {
		return
	}
	var ret Connection[ElectionResponse]
	_ = s.view(func(q *query.Query) error {
		ret = makeConnection(q.Elections(rng, args), newElectionResponse)
		return nil
	})
	writeJSON(w, http.StatusOK, ret)
}

func parseElectionTime(
	w http.ResponseWriter,
	r *http.Request,
) (types.BlockTimestamp, bool) {
	t, err := types.ParseBlockTimestamp(r.PathValue("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid election time: "+err.Error())
		return 0, false
	}
	return t, true
}

// handleElection handles GET /api/v1/elections/{time}
func (s *Server) handleElection(
	w http.ResponseWriter,
	r *http.Request,
) {
	t, ok := parseElectionTime(w, r)
	if !ok {
		return
	}
	var ret *ElectionResponse
	_ = s.view(func(q *query.Query) error {
		if e := q.Election(t); e != nil {
			tmp := newElectionResponse(e)
			ret = &tmp
		}
		return nil
	})
	if ret == nil {
		writeError(w, http.StatusNotFound, "election not found")
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleElectionGroups handles GET /api/v1/elections/{time}/groups
func (s *Server) handleElectionGroups(
	w http.ResponseWriter,
	r *http.Request,
) {
	t, ok := parseElectionTime(w, r)
	if !ok {
		return
	}
	rng, args, ok := parsePage(w, r, ParseRoundRange)
	if !ok {
		return
	}
	var ret *Connection[GroupResponse]
	_ = s.view(func(q *query.Query) error {
		e := q.Election(t)
		if e == nil {
			return nil
		}
		tmp := makeConnection(e.GroupsByRound(rng, args), newGroupResponse)
		ret = &tmp
		return nil
	})
	if ret == nil {
		writeError(w, http.StatusNotFound, "election not found")
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleInductions handles GET /api/v1/inductions. With an invitee
// parameter it lists that account's pending inductions instead.
func (s *Server) handleInductions(
	w http.ResponseWriter,
	r *http.Request,
) {
	rng, args, ok := parsePage(w, r, ParseIDRange)
	if !ok {
		return
	}
	var invitee *types.Name
	if v := r.URL.Query().Get("invitee"); v != "" {
		name, err := types.NewName(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid invitee: "+err.Error())
			return
		}
		invitee = &name
	}
	var ret Connection[InductionResponse]
	_ = s.view(func(q *query.Query) error {
		if invitee != nil {
			ret = makeConnection(
				q.InductionsByInvitee(*invitee, args),
				newInductionResponse,
			)
			return nil
		}
		ret = makeConnection(q.Inductions(rng, args), newInductionResponse)
		return nil
	})
	writeJSON(w, http.StatusOK, ret)
}

// handleBlockLog handles GET /api/v1/blocks and summarizes the block log
func (s *Server) handleBlockLog(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, BlockLogResponse(s.indexer.Status()))
}

// handleBlock handles GET /api/v1/blocks/{num}
func (s *Server) handleBlock(
	w http.ResponseWriter,
	r *http.Request,
) {
	num, err := strconv.ParseUint(r.PathValue("num"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block num")
		return
	}
	b, err := s.indexer.GetBlock(uint32(num))
	if err != nil {
		if errors.Is(err, chain.ErrBlockNotFound) {
			writeError(w, http.StatusNotFound, "block not found")
			return
		}
		s.logger.Error(
			"failed to get block",
			"num", num,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to retrieve block")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) writeStoreError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, microchain.ErrNoMetadataStore) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Error(
		"failed to get "+what,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "failed to retrieve "+what)
}

// handleBlockHeaders handles GET /api/v1/headers
func (s *Server) handleBlockHeaders(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	headers, err := s.indexer.BlockHeaders(params.From, params.Limit)
	if err != nil {
		s.writeStoreError(w, "block headers", err)
		return
	}
	ret := make([]HeaderResponse, 0, len(headers))
	for _, h := range headers {
		ret = append(ret, newHeaderResponse(h))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleFaults handles GET /api/v1/faults
func (s *Server) handleFaults(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	faults, err := s.indexer.Faults(params.From, params.Limit)
	if err != nil {
		s.writeStoreError(w, "replay faults", err)
		return
	}
	ret := make([]FaultResponse, 0, len(faults))
	for _, f := range faults {
		ret = append(ret, newStoredFaultResponse(f))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleAddBlock handles POST /api/v1/blocks. The body is a source chain
// block and the optional irreversible parameter is the source chain's
// irreversible block num.
func (s *Server) handleAddBlock(
	w http.ResponseWriter,
	r *http.Request,
) {
	var irreversible uint32
	if v := r.URL.Query().Get("irreversible"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid irreversible block num")
			return
		}
		irreversible = uint32(n)
	}
	var req SourceBlockRequest
	if !readJSON(w, r, &req) {
		return
	}
	src, err := req.ToSourceBlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.indexer.AddSourceBlock(r.Context(), src, irreversible)
	if err != nil {
		if errors.Is(err, chain.ErrUnlinkableBlock) {
			writeJSON(w, http.StatusConflict, newAddBlockResponse(res))
			return
		}
		s.logger.Error(
			"failed to add block",
			"source_num", src.Num,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to add block")
		return
	}
	writeJSON(w, http.StatusOK, newAddBlockResponse(res))
}

// handleSetIrreversible handles POST /api/v1/irreversible
func (s *Server) handleSetIrreversible(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req IrreversibleRequest
	if !readJSON(w, r, &req) {
		return
	}
	var irreversible uint32
	var err error
	switch {
	case req.SourceNum != nil && req.Num != nil:
		writeError(w, http.StatusBadRequest, "only one of sourceNum and num may be given")
		return
	case req.SourceNum != nil:
		irreversible, err = s.indexer.SetIrreversible(*req.SourceNum)
	case req.Num != nil:
		irreversible, err = s.indexer.SetIrreversibleNum(*req.Num)
	default:
		writeError(w, http.StatusBadRequest, "one of sourceNum and num is required")
		return
	}
	if err != nil {
		s.logger.Error(
			"failed to set irreversible block",
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to set irreversible block")
		return
	}
	writeJSON(w, http.StatusOK, IrreversibleResponse{Irreversible: irreversible})
}

// handleTrim handles POST /api/v1/admin/trim
func (s *Server) handleTrim(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, TrimResponse{Trimmed: s.indexer.TrimBlocks()})
}

// handleUndo handles POST /api/v1/admin/undo
func (s *Server) handleUndo(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req UndoRequest
	if !readJSON(w, r, &req) {
		return
	}
	var undone int
	var err error
	switch {
	case req.SourceNum != nil && req.Num != nil:
		writeError(w, http.StatusBadRequest, "only one of sourceNum and num may be given")
		return
	case req.SourceNum != nil:
		undone, err = s.indexer.UndoSourceNum(*req.SourceNum)
	case req.Num != nil:
		undone, err = s.indexer.UndoBlockNum(*req.Num)
	default:
		writeError(w, http.StatusBadRequest, "one of sourceNum and num is required")
		return
	}
	if err != nil {
		if errors.Is(err, chain.ErrForkBelowIrreversible) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error(
			"failed to undo blocks",
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to undo blocks")
		return
	}
	writeJSON(w, http.StatusOK, UndoResponse{Undone: undone})
}

// handleReset handles POST /api/v1/admin/reset
func (s *Server) handleReset(
	w http.ResponseWriter,
	_ *http.Request,
) {
	if err := s.indexer.Reset(); err != nil {
		s.logger.Error(
			"failed to reset",
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to reset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
