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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/microchain"
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database/models"
	"github.com/blinklabs-io/microchain/ledger"
	"github.com/blinklabs-io/microchain/query"
	"github.com/blinklabs-io/microchain/types"
)

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	IsHealthy    bool   `json:"isHealthy"`
	Head         uint32 `json:"head"`
	Irreversible uint32 `json:"irreversible"`
}

// Connection is a page of results with relay-style cursors
type Connection[T any] struct {
	Edges    []query.Edge[T] `json:"edges"`
	PageInfo query.PageInfo  `json:"pageInfo"`
}

func makeConnection[S, T any](c query.Connection[S], convert func(S) T) Connection[T] {
	ret := Connection[T]{
		Edges:    make([]query.Edge[T], 0, len(c.Edges)),
		PageInfo: c.PageInfo,
	}
	for _, edge := range c.Edges {
		ret.Edges = append(ret.Edges, query.Edge[T]{
			Node:   convert(edge.Node),
			Cursor: edge.Cursor,
		})
	}
	return ret
}

type StatusResponse struct {
	Active             bool               `json:"active"`
	Community          string             `json:"community"`
	CommunitySymbol    types.Symbol       `json:"communitySymbol"`
	MinimumDonation    types.Asset        `json:"minimumDonation"`
	InitialMembers     []types.Name       `json:"initialMembers"`
	GenesisVideo       string             `json:"genesisVideo"`
	AuctionStartingBid types.Asset        `json:"auctionStartingBid"`
	AuctionDuration    uint32             `json:"auctionDuration"`
	Memo               string             `json:"memo"`
	Attributes         []ledger.Attribute `json:"attributes"`
}

func newStatusResponse(s *query.Status) StatusResponse {
	return StatusResponse{
		Active:             s.Active(),
		Community:          s.Community(),
		CommunitySymbol:    s.CommunitySymbol(),
		MinimumDonation:    s.MinimumDonation(),
		InitialMembers:     accounts(s.InitialMembers()),
		GenesisVideo:       s.GenesisVideo(),
		AuctionStartingBid: s.AuctionStartingBid(),
		AuctionDuration:    s.AuctionDuration(),
		Memo:               s.Memo(),
		Attributes:         s.Attributes(),
	}
}

func accounts(members []*query.Member) []types.Name {
	ret := make([]types.Name, 0, len(members))
	for _, m := range members {
		ret = append(ret, m.Account())
	}
	return ret
}

func account(m *query.Member) *types.Name {
	if m == nil {
		return nil
	}
	ret := m.Account()
	return &ret
}

type MemberResponse struct {
	Account            types.Name      `json:"account"`
	Exists             bool            `json:"exists"`
	Inviter            *types.Name     `json:"inviter"`
	InductionWitnesses []types.Name    `json:"inductionWitnesses"`
	Profile            *ledger.Profile `json:"profile"`
	InductionVideo     string          `json:"inductionVideo"`
	Participating      bool            `json:"participating"`
}

func newMemberResponse(m *query.Member) MemberResponse {
	return MemberResponse{
		Account:            m.Account(),
		Exists:             m.Exists(),
		Inviter:            account(m.Inviter()),
		InductionWitnesses: accounts(m.InductionWitnesses()),
		Profile:            m.Profile(),
		InductionVideo:     m.InductionVideo(),
		Participating:      m.Participating(),
	}
}

type VoteResponse struct {
	Voter     *types.Name `json:"voter"`
	Candidate *types.Name `json:"candidate"`
	GroupID   uint64      `json:"groupId"`
	Round     uint8       `json:"round"`
}

func newVoteResponse(v *query.Vote) VoteResponse {
	group := v.Group()
	return VoteResponse{
		Voter:     account(v.Voter()),
		Candidate: account(v.Candidate()),
		GroupID:   uint64(group.ID()),
		Round:     group.Round(),
	}
}

type GroupResponse struct {
	ID     uint64         `json:"id"`
	Round  uint8          `json:"round"`
	Winner *types.Name    `json:"winner"`
	Votes  []VoteResponse `json:"votes"`
}

func newGroupResponse(g *query.ElectionGroup) GroupResponse {
	votes := g.Votes()
	ret := GroupResponse{
		ID:     uint64(g.ID()),
		Round:  g.Round(),
		Winner: account(g.Winner()),
		Votes:  make([]VoteResponse, 0, len(votes)),
	}
	for _, v := range votes {
		ret.Votes = append(ret.Votes, newVoteResponse(v))
	}
	return ret
}

type ElectionResponse struct {
	Time       types.BlockTimestamp `json:"time"`
	FinalGroup *GroupResponse       `json:"finalGroup"`
}

func newElectionResponse(e *query.Election) ElectionResponse {
	ret := ElectionResponse{
		Time: e.Time(),
	}
	if g := e.FinalGroup(); g != nil {
		tmp := newGroupResponse(g)
		ret.FinalGroup = &tmp
	}
	return ret
}

type MemberElectionResponse struct {
	Time  types.BlockTimestamp `json:"time"`
	Votes []VoteResponse       `json:"votes"`
}

func newMemberElectionResponse(m *query.MemberElection) MemberElectionResponse {
	votes := m.Votes(query.ConnectionArgs{}).Nodes()
	ret := MemberElectionResponse{
		Time:  m.Time(),
		Votes: make([]VoteResponse, 0, len(votes)),
	}
	for _, v := range votes {
		ret.Votes = append(ret.Votes, newVoteResponse(v))
	}
	return ret
}

type InductionResponse struct {
	ID        uint64         `json:"id"`
	Inviter   *types.Name    `json:"inviter"`
	Invitee   *types.Name    `json:"invitee"`
	Witnesses []types.Name   `json:"witnesses"`
	Profile   ledger.Profile `json:"profile"`
	Video     string         `json:"video"`
}

func newInductionResponse(i *query.Induction) InductionResponse {
	return InductionResponse{
		ID:        i.ID(),
		Inviter:   account(i.Inviter()),
		Invitee:   account(i.Invitee()),
		Witnesses: accounts(i.Witnesses()),
		Profile:   i.Profile(),
		Video:     i.Video(),
	}
}

// BlockLogResponse summarizes the block log
type BlockLogResponse = microchain.Status

// ActionRequest is a source chain action. Parameters are given either as
// JSON or as hex encoded action data.
type ActionRequest struct {
	FirstReceiver types.Name      `json:"firstReceiver"`
	Receiver      types.Name      `json:"receiver"`
	Name          types.Name      `json:"name"`
	JSON          json.RawMessage `json:"json,omitempty"`
	HexData       string          `json:"hexData,omitempty"`
}

func (a ActionRequest) toAction() (chain.Action, error) {
	ret := chain.Action{
		FirstReceiver: a.FirstReceiver,
		Receiver:      a.Receiver,
		Name:          a.Name,
	}
	if ret.Receiver.IsEmpty() {
		ret.Receiver = ret.FirstReceiver
	}
	switch {
	case a.HexData != "":
		data, err := hex.DecodeString(a.HexData)
		if err != nil {
			return chain.Action{}, fmt.Errorf("action %s: hexData: %w", a.Name, err)
		}
		ret.Data = data
	case len(a.JSON) > 0:
		data, err := ledger.DecodeActionJSON(a.Name, a.JSON)
		if err != nil {
			// Actions the replica does not handle are carried without data
			if errors.Is(err, ledger.ErrUnknownAction) {
				return ret, nil
			}
			return chain.Action{}, err
		}
		ret.Data = data
	}
	return ret, nil
}

type TransactionRequest struct {
	ID      types.Checksum256 `json:"id"`
	Actions []ActionRequest   `json:"actions"`
}

type SourceBlockRequest struct {
	Num          uint32               `json:"num"`
	ID           types.Checksum256    `json:"id"`
	Previous     types.Checksum256    `json:"previous"`
	Timestamp    types.BlockTimestamp `json:"timestamp"`
	Transactions []TransactionRequest `json:"transactions"`
}

// ToSourceBlock decodes the request into a source block, parsing action data
func (r SourceBlockRequest) ToSourceBlock() (chain.SourceBlock, error) {
	ret := chain.SourceBlock{
		Num:          r.Num,
		ID:           r.ID,
		Previous:     r.Previous,
		Timestamp:    r.Timestamp,
		Transactions: make([]chain.Transaction, 0, len(r.Transactions)),
	}
	for _, tx := range r.Transactions {
		actions := make([]chain.Action, 0, len(tx.Actions))
		for _, a := range tx.Actions {
			action, err := a.toAction()
			if err != nil {
				return chain.SourceBlock{}, err
			}
			actions = append(actions, action)
		}
		ret.Transactions = append(ret.Transactions, chain.Transaction{
			ID:      tx.ID,
			Actions: actions,
		})
	}
	return ret, nil
}

type FaultResponse struct {
	BlockNum       uint32 `json:"blockNum"`
	SourceBlockNum uint32 `json:"sourceBlockNum"`
	TransactionID  string `json:"transactionId"`
	ActionIndex    int    `json:"actionIndex"`
	Action         string `json:"action"`
	Error          string `json:"error"`
}

func newStoredFaultResponse(f models.ReplayFault) FaultResponse {
	return FaultResponse{
		BlockNum:       f.BlockNum,
		SourceBlockNum: f.SourceBlockNum,
		TransactionID:  hex.EncodeToString(f.TransactionID),
		ActionIndex:    f.ActionIndex,
		Action:         f.Action,
		Error:          f.Error,
	}
}

type HeaderResponse struct {
	Num              uint32               `json:"num"`
	ID               string               `json:"id"`
	Previous         string               `json:"previous"`
	SourceNum        uint32               `json:"sourceNum"`
	SourceID         string               `json:"sourceId"`
	SourceTimestamp  types.BlockTimestamp `json:"sourceTimestamp"`
	TransactionCount int                  `json:"transactionCount"`
	ActionCount      int                  `json:"actionCount"`
	FaultCount       int                  `json:"faultCount"`
	AddedAt          time.Time            `json:"addedAt"`
}

func newHeaderResponse(h models.BlockHeader) HeaderResponse {
	return HeaderResponse{
		Num:              h.Num,
		ID:               hex.EncodeToString(h.Hash),
		Previous:         hex.EncodeToString(h.PrevHash),
		SourceNum:        h.SourceNum,
		SourceID:         hex.EncodeToString(h.SourceID),
		SourceTimestamp:  types.BlockTimestamp(h.SourceTimestamp),
		TransactionCount: h.TransactionCount,
		ActionCount:      h.ActionCount,
		FaultCount:       h.FaultCount,
		AddedAt:          h.AddedAt,
	}
}

type AddBlockResponse struct {
	Status       string            `json:"status"`
	Num          uint32            `json:"num"`
	ID           types.Checksum256 `json:"id"`
	Forked       int               `json:"forked"`
	Irreversible uint32            `json:"irreversible"`
	Faults       []FaultResponse   `json:"faults"`
}

func newAddBlockResponse(res microchain.AddResult) AddBlockResponse {
	ret := AddBlockResponse{
		Status:       res.Status.String(),
		Forked:       res.Forked,
		Irreversible: res.Irreversible,
		Faults:       make([]FaultResponse, 0, len(res.Faults)),
	}
	if res.Block != nil {
		ret.Num = res.Block.Num
		ret.ID = res.Block.ID
	}
	for _, f := range res.Faults {
		ret.Faults = append(ret.Faults, FaultResponse{
			BlockNum:       f.BlockNum,
			SourceBlockNum: f.SourceBlockNum,
			TransactionID:  f.TransactionID.String(),
			ActionIndex:    f.ActionIndex,
			Action:         f.Action.String(),
			Error:          f.Err.Error(),
		})
	}
	return ret
}

// IrreversibleRequest sets the irreversible block either by source block num
// or by block num
type IrreversibleRequest struct {
	SourceNum *uint32 `json:"sourceNum,omitempty"`
	Num       *uint32 `json:"num,omitempty"`
}

type IrreversibleResponse struct {
	Irreversible uint32 `json:"irreversible"`
}

// UndoRequest undoes every block after num, or the block built from
// sourceNum and every block after it
type UndoRequest struct {
	SourceNum *uint32 `json:"sourceNum,omitempty"`
	Num       *uint32 `json:"num,omitempty"`
}

type UndoResponse struct {
	Undone int `json:"undone"`
}

type TrimResponse struct {
	Trimmed int `json:"trimmed"`
}
