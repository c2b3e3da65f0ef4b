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
	"fmt"
	"slices"

	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/blinklabs-io/microchain/types"
	"github.com/fxamacker/cbor/v2"
)

const (
	IndexByPK      = "by_pk"
	IndexByInvitee = "by_invitee"
	IndexByRound   = "by_round"
	IndexByGroup   = "by_group"
)

// Profile is a member's self-description, supplied during induction
type Profile struct {
	Name         string `json:"name"`
	Img          string `json:"img"`
	Bio          string `json:"bio"`
	Social       string `json:"social"`
	Attributions string `json:"attributions"`
}

// Attribute is one entry of the community NFT collection attributes
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Status struct {
	Active               bool
	Community            string
	CommunitySymbol      types.Symbol
	MinimumDonation      types.Asset
	InitialMembers       []types.Name
	GenesisVideo         string
	CollectionAttributes []Attribute
	AuctionStartingBid   types.Asset
	AuctionDuration      uint32
	Memo                 string
}

type Induction struct {
	ID        uint64
	Inviter   types.Name
	Invitee   types.Name
	Witnesses []types.Name
	Profile   Profile
	Video     string
}

type Member struct {
	Account            types.Name
	Inviter            types.Name
	InductionWitnesses []types.Name
	Profile            Profile
	InductionVideo     string
	Participating      bool
}

type Election struct {
	Time types.BlockTimestamp
	// FinalGroupID is the row id of the group whose winner stands
	// uncontested, if any
	FinalGroupID *database.ID
}

type ElectionGroup struct {
	ElectionTime types.BlockTimestamp
	Round        uint8
	Winner       types.Name
}

type Vote struct {
	ElectionTime types.BlockTimestamp
	GroupID      database.ID
	Voter        types.Name
	Candidate    types.Name
}

func InductionKey(id uint64) keys.Key {
	return keys.Uint64(id)
}

func InductionInviteeKey(invitee types.Name, id uint64) keys.Key {
	return keys.New().Uint64(uint64(invitee)).Uint64(id).Key()
}

func MemberKey(account types.Name) keys.Key {
	return keys.Uint64(uint64(account))
}

func ElectionKey(t types.BlockTimestamp) keys.Key {
	return keys.New().Uint32(uint32(t)).Key()
}

func ElectionGroupRoundKey(
	t types.BlockTimestamp,
	round uint8,
	id database.ID,
) keys.Key {
	return keys.New().Uint32(uint32(t)).Uint8(round).Uint64(uint64(id)).Key()
}

func VoteKey(
	voter types.Name,
	t types.BlockTimestamp,
	groupID database.ID,
) keys.Key {
	return keys.New().
		Uint64(uint64(voter)).
		Uint32(uint32(t)).
		Uint64(uint64(groupID)).
		Key()
}

func VoteGroupKey(groupID database.ID, voter types.Name) keys.Key {
	return keys.New().Uint64(uint64(groupID)).Uint64(uint64(voter)).Key()
}

// Tables holds every contract table. All of them live in one database so a
// single undo session covers a whole block.
type Tables struct {
	Status         *database.Table[Status]
	Inductions     *database.Table[Induction]
	Members        *database.Table[Member]
	Elections      *database.Table[Election]
	ElectionGroups *database.Table[ElectionGroup]
	Votes          *database.Table[Vote]
}

func NewTables(db *database.Database) *Tables {
	return &Tables{
		Status: database.NewTable(
			db,
			"status",
			func(s Status) Status {
				s.InitialMembers = slices.Clone(s.InitialMembers)
				s.CollectionAttributes = slices.Clone(s.CollectionAttributes)
				return s
			},
		),
		Inductions: database.NewTable(
			db,
			"inductions",
			func(i Induction) Induction {
				i.Witnesses = slices.Clone(i.Witnesses)
				return i
			},
			database.IndexSpec[Induction]{
				Name: IndexByPK,
				Key: func(r *database.Row[Induction]) keys.Key {
					return InductionKey(r.Value.ID)
				},
			},
			database.IndexSpec[Induction]{
				Name: IndexByInvitee,
				Key: func(r *database.Row[Induction]) keys.Key {
					return InductionInviteeKey(r.Value.Invitee, r.Value.ID)
				},
			},
		),
		Members: database.NewTable(
			db,
			"members",
			func(m Member) Member {
				m.InductionWitnesses = slices.Clone(m.InductionWitnesses)
				return m
			},
			database.IndexSpec[Member]{
				Name: IndexByPK,
				Key: func(r *database.Row[Member]) keys.Key {
					return MemberKey(r.Value.Account)
				},
			},
		),
		Elections: database.NewTable(
			db,
			"elections",
			func(e Election) Election {
				if e.FinalGroupID != nil {
					tmp := *e.FinalGroupID
					e.FinalGroupID = &tmp
				}
				return e
			},
			database.IndexSpec[Election]{
				Name: IndexByPK,
				Key: func(r *database.Row[Election]) keys.Key {
					return ElectionKey(r.Value.Time)
				},
			},
		),
		ElectionGroups: database.NewTable(
			db,
			"election_groups",
			nil,
			database.IndexSpec[ElectionGroup]{
				Name: IndexByRound,
				Key: func(r *database.Row[ElectionGroup]) keys.Key {
					return ElectionGroupRoundKey(
						r.Value.ElectionTime,
						r.Value.Round,
						r.ID,
					)
				},
			},
		),
		Votes: database.NewTable(
			db,
			"votes",
			nil,
			database.IndexSpec[Vote]{
				Name: IndexByPK,
				Key: func(r *database.Row[Vote]) keys.Key {
					return VoteKey(r.Value.Voter, r.Value.ElectionTime, r.Value.GroupID)
				},
			},
			database.IndexSpec[Vote]{
				Name: IndexByGroup,
				Key: func(r *database.Row[Vote]) keys.Key {
					return VoteGroupKey(r.Value.GroupID, r.Value.Voter)
				},
			},
		),
	}
}

// ClearAll removes every record from every table. The removal is recorded on
// the undo stack like any other change.
func (t *Tables) ClearAll() {
	t.Status.Clear()
	t.Inductions.Clear()
	t.Members.Clear()
	t.Elections.Clear()
	t.ElectionGroups.Clear()
	t.Votes.Clear()
}

type snapshot struct {
	Status         []*database.Row[Status]
	Inductions     []*database.Row[Induction]
	Members        []*database.Row[Member]
	Elections      []*database.Row[Election]
	ElectionGroups []*database.Row[ElectionGroup]
	Votes          []*database.Row[Vote]
}

// Snapshot returns a canonical encoding of every table's records in identity
// order. Two replicas that replayed the same blocks produce identical bytes.
func (t *Tables) Snapshot() ([]byte, error) {
	data, err := encMode.Marshal(
		snapshot{
			Status:         t.Status.Rows(),
			Inductions:     t.Inductions.Rows(),
			Members:        t.Members.Rows(),
			Elections:      t.Elections.Rows(),
			ElectionGroups: t.ElectionGroups.Rows(),
			Votes:          t.Votes.Rows(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()
