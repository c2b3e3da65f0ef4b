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

package ledger

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/blinklabs-io/microchain/types"
	"github.com/fxamacker/cbor/v2"
)

var (
	ActionGenesis      = types.MustName("genesis")
	ActionAddToGenesis = types.MustName("addtogenesis")
	ActionInductInit   = types.MustName("inductinit")
	ActionInductProfil = types.MustName("inductprofil")
	ActionInductVideo  = types.MustName("inductvideo")
	ActionInductCancel = types.MustName("inductcancel")
	ActionInductDonate = types.MustName("inductdonate")
	ActionResign       = types.MustName("resign")
	ActionElectReport  = types.MustName("electreport")
	ActionElectOpt     = types.MustName("electopt")
	ActionClearAll     = types.MustName("clearall")
)

type GenesisParams struct {
	_                    struct{}     `cbor:",toarray"`
	Community            string       `json:"community"`
	CommunitySymbol      types.Symbol `json:"community_symbol"`
	MinimumDonation      types.Asset  `json:"minimum_donation"`
	InitialMembers       []types.Name `json:"initial_members"`
	GenesisVideo         string       `json:"genesis_video"`
	CollectionAttributes []Attribute  `json:"collection_attributes"`
	AuctionStartingBid   types.Asset  `json:"auction_starting_bid"`
	AuctionDuration      uint32       `json:"auction_duration"`
	Memo                 string       `json:"memo"`
}

type AddToGenesisParams struct {
	_                struct{}   `cbor:",toarray"`
	NewGenesisMember types.Name `json:"new_genesis_member"`
}

type InductInitParams struct {
	_         struct{}     `cbor:",toarray"`
	ID        uint64       `json:"id"`
	Inviter   types.Name   `json:"inviter"`
	Invitee   types.Name   `json:"invitee"`
	Witnesses []types.Name `json:"witnesses"`
}

type InductProfilParams struct {
	_       struct{} `cbor:",toarray"`
	ID      uint64   `json:"id"`
	Profile Profile  `json:"new_member_profile"`
}

type InductVideoParams struct {
	_       struct{}   `cbor:",toarray"`
	Account types.Name `json:"account"`
	ID      uint64     `json:"id"`
	Video   string     `json:"video"`
}

type InductCancelParams struct {
	_       struct{}   `cbor:",toarray"`
	Account types.Name `json:"account"`
	ID      uint64     `json:"id"`
}

type InductDonateParams struct {
	_        struct{}    `cbor:",toarray"`
	Payer    types.Name  `json:"payer"`
	ID       uint64      `json:"id"`
	Quantity types.Asset `json:"quantity"`
}

type ResignParams struct {
	_       struct{}   `cbor:",toarray"`
	Account types.Name `json:"account"`
}

type VoteReport struct {
	_         struct{}   `cbor:",toarray"`
	Voter     types.Name `json:"voter"`
	Candidate types.Name `json:"candidate"`
}

type ElectReportParams struct {
	_       struct{}     `cbor:",toarray"`
	Round   uint8        `json:"round"`
	Reports []VoteReport `json:"reports"`
	Winner  types.Name   `json:"winner"`
	// ElectionTime is zero when the source action omitted it
	ElectionTime types.BlockTimestamp `json:"election_time"`
}

type ElectOptParams struct {
	_             struct{}   `cbor:",toarray"`
	Voter         types.Name `json:"voter"`
	Participating bool       `json:"participating"`
}

type ClearAllParams struct {
	_ struct{} `cbor:",toarray"`
}

type actionDef struct {
	fromCBOR func([]byte) (any, error)
	fromJSON func([]byte) (any, error)
	apply    func(*State, any) error
}

func newActionDef[P any](
	fn func(*State, *P) error,
	allowEmpty bool,
) actionDef {
	return actionDef{
		fromCBOR: func(data []byte) (any, error) {
			p := new(P)
			if len(data) == 0 && allowEmpty {
				return p, nil
			}
			if err := cbor.Unmarshal(data, p); err != nil {
				return nil, err
			}
			return p, nil
		},
		fromJSON: func(data []byte) (any, error) {
			p := new(P)
			if len(data) == 0 && allowEmpty {
				return p, nil
			}
			if err := json.Unmarshal(data, p); err != nil {
				return nil, err
			}
			return p, nil
		},
		apply: func(s *State, p any) error {
			return fn(s, p.(*P))
		},
	}
}

var actionDefs = map[types.Name]actionDef{
	ActionGenesis:      newActionDef((*State).genesis, false),
	ActionAddToGenesis: newActionDef((*State).addToGenesis, false),
	ActionInductInit:   newActionDef((*State).inductInit, false),
	ActionInductProfil: newActionDef((*State).inductProfil, false),
	ActionInductVideo:  newActionDef((*State).inductVideo, false),
	ActionInductCancel: newActionDef((*State).inductCancel, false),
	ActionInductDonate: newActionDef((*State).inductDonate, false),
	ActionResign:       newActionDef((*State).resign, false),
	ActionElectReport:  newActionDef((*State).electReport, false),
	ActionElectOpt:     newActionDef((*State).electOpt, false),
	ActionClearAll:     newActionDef((*State).clearAll, true),
}

// ActionNames returns the names of all replayed contract actions, sorted
func ActionNames() []types.Name {
	ret := make([]types.Name, 0, len(actionDefs))
	for name := range actionDefs {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

// EncodeAction returns the action data for a parameter struct
func EncodeAction(params any) ([]byte, error) {
	data, err := encMode.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}
	return data, nil
}

// DecodeActionJSON converts JSON action parameters into action data
func DecodeActionJSON(name types.Name, data []byte) ([]byte, error) {
	def, ok := actionDefs[name]
	if !ok {
		return nil, NewUnknownActionError(name)
	}
	params, err := def.fromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s parameters: %w", name, err)
	}
	return EncodeAction(params)
}
