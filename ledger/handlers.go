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
	"slices"

	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/blinklabs-io/microchain/types"
)

// Handlers must only read the tables and the action parameters so every
// replica replaying the same blocks ends up with the same state.

func (s *State) status() (*database.Row[Status], error) {
	if s.tables.Status.Len() != 1 {
		return nil, ErrMissingGenesis
	}
	row, _ := s.tables.Status.Last(database.IndexById)
	return row, nil
}

// nextInductionID returns the id after the highest induction id, starting at 1
func (s *State) nextInductionID() uint64 {
	row, ok := s.tables.Inductions.Last(IndexByPK)
	if !ok {
		return 1
	}
	return row.Value.ID + 1
}

func (s *State) addGenesisMember(status *Status, member types.Name) {
	id := s.nextInductionID()
	s.tables.Inductions.Insert(func(i *Induction) {
		i.ID = id
		i.Inviter = s.contract
		i.Invitee = member
		for _, witness := range status.InitialMembers {
			if witness != member {
				i.Witnesses = append(i.Witnesses, witness)
			}
		}
	})
}

func (s *State) genesis(p *GenesisParams) error {
	if s.tables.Status.Len() > 0 {
		return ErrDuplicateGenesis
	}
	row := s.tables.Status.Insert(func(st *Status) {
		st.Community = p.Community
		st.CommunitySymbol = p.CommunitySymbol
		st.MinimumDonation = p.MinimumDonation
		st.InitialMembers = slices.Clone(p.InitialMembers)
		st.GenesisVideo = p.GenesisVideo
		st.CollectionAttributes = slices.Clone(p.CollectionAttributes)
		st.AuctionStartingBid = p.AuctionStartingBid
		st.AuctionDuration = p.AuctionDuration
		st.Memo = p.Memo
	})
	for _, member := range row.Value.InitialMembers {
		s.addGenesisMember(&row.Value, member)
	}
	return nil
}

func (s *State) addToGenesis(p *AddToGenesisParams) error {
	status, err := s.status()
	if err != nil {
		return err
	}
	s.tables.Status.Modify(status, func(st *Status) {
		st.InitialMembers = append(st.InitialMembers, p.NewGenesisMember)
	})
	for _, row := range s.tables.Inductions.Rows() {
		s.tables.Inductions.Modify(row, func(i *Induction) {
			i.Witnesses = append(i.Witnesses, p.NewGenesisMember)
		})
	}
	s.addGenesisMember(&status.Value, p.NewGenesisMember)
	return nil
}

func (s *State) inductInit(p *InductInitParams) error {
	status, err := s.status()
	if err != nil {
		return err
	}
	// The contract only allows inductions once it is active, so the first one
	// marks the transition
	if !status.Value.Active {
		s.tables.Status.Modify(status, func(st *Status) {
			st.Active = true
		})
	}
	if row, ok := s.tables.Inductions.Find(IndexByPK, InductionKey(p.ID)); ok {
		s.tables.Inductions.Remove(row)
	}
	s.tables.Inductions.Insert(func(i *Induction) {
		i.ID = p.ID
		i.Inviter = p.Inviter
		i.Invitee = p.Invitee
		i.Witnesses = slices.Clone(p.Witnesses)
	})
	return nil
}

func (s *State) inductProfil(p *InductProfilParams) error {
	row, err := s.tables.Inductions.MustFind(IndexByPK, InductionKey(p.ID))
	if err != nil {
		return err
	}
	s.tables.Inductions.Modify(row, func(i *Induction) {
		i.Profile = p.Profile
	})
	return nil
}

func (s *State) inductVideo(p *InductVideoParams) error {
	row, err := s.tables.Inductions.MustFind(IndexByPK, InductionKey(p.ID))
	if err != nil {
		return err
	}
	s.tables.Inductions.Modify(row, func(i *Induction) {
		i.Video = p.Video
	})
	return nil
}

func (s *State) inductCancel(p *InductCancelParams) error {
	if row, ok := s.tables.Inductions.Find(IndexByPK, InductionKey(p.ID)); ok {
		s.tables.Inductions.Remove(row)
	}
	return nil
}

func (s *State) inductDonate(p *InductDonateParams) error {
	induction, err := s.tables.Inductions.MustFind(IndexByPK, InductionKey(p.ID))
	if err != nil {
		return err
	}
	invitee := induction.Value.Invitee
	s.tables.Members.Insert(func(m *Member) {
		m.Account = invitee
		m.Inviter = induction.Value.Inviter
		m.InductionWitnesses = slices.Clone(induction.Value.Witnesses)
		m.Profile = induction.Value.Profile
		m.InductionVideo = induction.Value.Video
	})
	// Donating resolves every pending induction for the invitee
	var pending []*database.Row[Induction]
	s.tables.Inductions.Ascend(
		IndexByInvitee,
		InductionInviteeKey(invitee, 0),
		keys.Successor(InductionInviteeKey(invitee, keys.MaxUint64)),
		func(row *database.Row[Induction]) bool {
			pending = append(pending, row)
			return true
		},
	)
	for _, row := range pending {
		s.tables.Inductions.Remove(row)
	}
	return nil
}

func (s *State) resign(p *ResignParams) error {
	if row, ok := s.tables.Members.Find(IndexByPK, MemberKey(p.Account)); ok {
		s.tables.Members.Remove(row)
	}
	return nil
}

func (s *State) clearParticipating() {
	var participating []*database.Row[Member]
	s.tables.Members.Ascend(
		IndexByPK,
		nil,
		nil,
		func(row *database.Row[Member]) bool {
			if row.Value.Participating {
				participating = append(participating, row)
			}
			return true
		},
	)
	for _, row := range participating {
		s.tables.Members.Modify(row, func(m *Member) {
			m.Participating = false
		})
	}
}

func (s *State) electReport(p *ElectReportParams) error {
	electionKey := ElectionKey(p.ElectionTime)
	if _, ok := s.tables.Elections.Find(IndexByPK, electionKey); !ok {
		// A new election starts with nobody opted in
		s.clearParticipating()
		s.tables.Elections.Insert(func(e *Election) {
			e.Time = p.ElectionTime
		})
	}
	group := s.tables.ElectionGroups.Insert(func(g *ElectionGroup) {
		g.ElectionTime = p.ElectionTime
		g.Round = p.Round
		g.Winner = p.Winner
	})
	foundVote := false
	for _, report := range p.Reports {
		s.tables.Votes.Insert(func(v *Vote) {
			v.ElectionTime = p.ElectionTime
			v.GroupID = group.ID
			v.Voter = report.Voter
			v.Candidate = report.Candidate
		})
		if !report.Candidate.IsEmpty() {
			foundVote = true
		}
	}
	// A round without real votes and with an account as the winner is the
	// last round of the election
	if !foundVote && p.Winner.IsHumanAccount() {
		election, err := s.tables.Elections.MustFind(IndexByPK, electionKey)
		if err != nil {
			return err
		}
		groupID := group.ID
		s.tables.Elections.Modify(election, func(e *Election) {
			e.FinalGroupID = &groupID
		})
	}
	return nil
}

func (s *State) electOpt(p *ElectOptParams) error {
	row, err := s.tables.Members.MustFind(IndexByPK, MemberKey(p.Voter))
	if err != nil {
		return err
	}
	s.tables.Members.Modify(row, func(m *Member) {
		m.Participating = p.Participating
	})
	return nil
}

func (s *State) clearAll(_ *ClearAllParams) error {
	s.tables.ClearAll()
	return nil
}
