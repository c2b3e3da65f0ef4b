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

// Package query exposes typed, read-only views over the contract tables. The
// views hold pointers into live state, so callers must not use them after the
// next block has been applied.
package query

import (
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/blinklabs-io/microchain/ledger"
	"github.com/blinklabs-io/microchain/types"
)

// Query is the root of all reads
type Query struct {
	tables *ledger.Tables
	log    *chain.BlockLog
}

func New(tables *ledger.Tables, log *chain.BlockLog) *Query {
	return &Query{
		tables: tables,
		log:    log,
	}
}

// Status returns nil until the genesis action has been applied
func (q *Query) Status() *Status {
	if q.tables.Status.Len() != 1 {
		return nil
	}
	row, _ := q.tables.Status.Last(database.IndexById)
	return &Status{q: q, status: &row.Value}
}

func (q *Query) BlockLog() *BlockLog {
	return &BlockLog{log: q.log}
}

func (q *Query) Members(r NameRange, args ConnectionArgs) Connection[*Member] {
	return MakeConnection(
		q.tables.Members.Index(ledger.IndexByPK),
		r.Bounds(ledger.MemberKey),
		args,
		func(id database.ID) *Member {
			row, _ := q.tables.Members.Get(id)
			return &Member{q: q, account: row.Value.Account, member: &row.Value}
		},
	)
}

func (q *Query) Elections(r TimeRange, args ConnectionArgs) Connection[*Election] {
	return MakeConnection(
		q.tables.Elections.Index(ledger.IndexByPK),
		r.Bounds(ledger.ElectionKey),
		args,
		q.election,
	)
}

// Election returns the election held at t, if any
func (q *Query) Election(t types.BlockTimestamp) *Election {
	row, ok := q.tables.Elections.Find(ledger.IndexByPK, ledger.ElectionKey(t))
	if !ok {
		return nil
	}
	return &Election{q: q, row: row}
}

func (q *Query) Inductions(r IDRange, args ConnectionArgs) Connection[*Induction] {
	return MakeConnection(
		q.tables.Inductions.Index(ledger.IndexByPK),
		r.Bounds(ledger.InductionKey),
		args,
		q.induction,
	)
}

// InductionsByInvitee pages through the pending inductions for one account
func (q *Query) InductionsByInvitee(
	invitee types.Name,
	args ConnectionArgs,
) Connection[*Induction] {
	return MakeConnection(
		q.tables.Inductions.Index(ledger.IndexByInvitee),
		Bounds{
			Ge: ledger.InductionInviteeKey(invitee, 0),
			Le: ledger.InductionInviteeKey(invitee, keys.MaxUint64),
		},
		args,
		q.induction,
	)
}

// Member returns the member view for account. Accounts without a member
// record still get a placeholder when the name looks like a real account.
func (q *Query) Member(account types.Name) *Member {
	if row, ok := q.tables.Members.Find(ledger.IndexByPK, ledger.MemberKey(account)); ok {
		return &Member{q: q, account: account, member: &row.Value}
	}
	if account.IsHumanAccount() {
		return &Member{q: q, account: account}
	}
	return nil
}

func (q *Query) members(accounts []types.Name) []*Member {
	ret := make([]*Member, 0, len(accounts))
	for _, account := range accounts {
		if m := q.Member(account); m != nil {
			ret = append(ret, m)
		}
	}
	return ret
}

func (q *Query) election(id database.ID) *Election {
	row, _ := q.tables.Elections.Get(id)
	return &Election{q: q, row: row}
}

func (q *Query) group(id database.ID) *ElectionGroup {
	row, ok := q.tables.ElectionGroups.Get(id)
	if !ok {
		return nil
	}
	return &ElectionGroup{q: q, row: row}
}

func (q *Query) induction(id database.ID) *Induction {
	row, _ := q.tables.Inductions.Get(id)
	return &Induction{q: q, row: row}
}

type Status struct {
	q      *Query
	status *ledger.Status
}

func (s *Status) Active() bool                    { return s.status.Active }
func (s *Status) Community() string               { return s.status.Community }
func (s *Status) CommunitySymbol() types.Symbol   { return s.status.CommunitySymbol }
func (s *Status) MinimumDonation() types.Asset    { return s.status.MinimumDonation }
func (s *Status) InitialMembers() []*Member       { return s.q.members(s.status.InitialMembers) }
func (s *Status) GenesisVideo() string            { return s.status.GenesisVideo }
func (s *Status) AuctionStartingBid() types.Asset { return s.status.AuctionStartingBid }
func (s *Status) AuctionDuration() uint32         { return s.status.AuctionDuration }
func (s *Status) Memo() string                    { return s.status.Memo }
func (s *Status) Attributes() []ledger.Attribute  { return s.status.CollectionAttributes }

// Member is a member record, or a placeholder for an account that has none
type Member struct {
	q       *Query
	account types.Name
	member  *ledger.Member
}

func (m *Member) Account() types.Name {
	return m.account
}

// Exists reports whether the account has a member record
func (m *Member) Exists() bool {
	return m.member != nil
}

func (m *Member) Inviter() *Member {
	if m.member == nil {
		return nil
	}
	return m.q.Member(m.member.Inviter)
}

func (m *Member) InductionWitnesses() []*Member {
	if m.member == nil {
		return nil
	}
	return m.q.members(m.member.InductionWitnesses)
}

func (m *Member) Profile() *ledger.Profile {
	if m.member == nil {
		return nil
	}
	return &m.member.Profile
}

func (m *Member) InductionVideo() string {
	if m.member == nil {
		return ""
	}
	return m.member.InductionVideo
}

func (m *Member) Participating() bool {
	return m.member != nil && m.member.Participating
}

// Elections pages through every election. Use MemberElection.Votes to get
// the member's own votes in each.
func (m *Member) Elections(
	r TimeRange,
	args ConnectionArgs,
) Connection[*MemberElection] {
	return MakeConnection(
		m.q.tables.Elections.Index(ledger.IndexByPK),
		r.Bounds(ledger.ElectionKey),
		args,
		func(id database.ID) *MemberElection {
			return &MemberElection{
				q:        m.q,
				account:  m.account,
				election: m.q.election(id),
			}
		},
	)
}

type Election struct {
	q   *Query
	row *database.Row[ledger.Election]
}

func (e *Election) Time() types.BlockTimestamp {
	return e.row.Value.Time
}

// GroupsByRound pages through the election's groups ordered by round. Open
// sides of r are limited to this election.
func (e *Election) GroupsByRound(
	r RoundRange,
	args ConnectionArgs,
) Connection[*ElectionGroup] {
	t := e.row.Value.Time
	var bounds Bounds
	if r.Gt != nil {
		bounds.Gt = ledger.ElectionGroupRoundKey(t, *r.Gt, database.ID(keys.MaxUint64))
	}
	if r.Ge != nil {
		bounds.Ge = ledger.ElectionGroupRoundKey(t, *r.Ge, 0)
	} else if r.Gt == nil {
		bounds.Ge = ledger.ElectionGroupRoundKey(t, 0, 0)
	}
	if r.Lt != nil {
		bounds.Lt = ledger.ElectionGroupRoundKey(t, *r.Lt, 0)
	}
	if r.Le != nil {
		bounds.Le = ledger.ElectionGroupRoundKey(t, *r.Le, database.ID(keys.MaxUint64))
	} else if r.Lt == nil {
		bounds.Le = ledger.ElectionGroupRoundKey(
			t,
			keys.MaxUint8,
			database.ID(keys.MaxUint64),
		)
	}
	return MakeConnection(
		e.q.tables.ElectionGroups.Index(ledger.IndexByRound),
		bounds,
		args,
		e.q.group,
	)
}

// FinalGroup returns the group whose winner stood uncontested, if any
func (e *Election) FinalGroup() *ElectionGroup {
	if e.row.Value.FinalGroupID == nil {
		return nil
	}
	return e.q.group(*e.row.Value.FinalGroupID)
}

// MemberElection is one election seen from one member
type MemberElection struct {
	q        *Query
	account  types.Name
	election *Election
}

func (m *MemberElection) Time() types.BlockTimestamp {
	return m.election.Time()
}

func (m *MemberElection) Election() *Election {
	return m.election
}

// Votes pages through the votes the member cast in this election
func (m *MemberElection) Votes(args ConnectionArgs) Connection[*Vote] {
	t := m.election.Time()
	return MakeConnection(
		m.q.tables.Votes.Index(ledger.IndexByPK),
		Bounds{
			Ge: ledger.VoteKey(m.account, t, 0),
			Le: ledger.VoteKey(m.account, t, database.ID(keys.MaxUint64)),
		},
		args,
		m.q.vote,
	)
}

type ElectionGroup struct {
	q   *Query
	row *database.Row[ledger.ElectionGroup]
}

func (g *ElectionGroup) ID() database.ID {
	return g.row.ID
}

func (g *ElectionGroup) Election() *Election {
	return g.q.Election(g.row.Value.ElectionTime)
}

func (g *ElectionGroup) Round() uint8 {
	return g.row.Value.Round
}

func (g *ElectionGroup) Winner() *Member {
	return g.q.Member(g.row.Value.Winner)
}

// Votes returns every vote reported for the group, ordered by voter
func (g *ElectionGroup) Votes() []*Vote {
	var ret []*Vote
	g.q.tables.Votes.Index(ledger.IndexByGroup).Ascend(
		ledger.VoteGroupKey(g.row.ID, 0),
		keys.Successor(ledger.VoteGroupKey(g.row.ID, types.Name(keys.MaxUint64))),
		func(_ keys.Key, id database.ID) bool {
			ret = append(ret, g.q.vote(id))
			return true
		},
	)
	return ret
}

func (q *Query) vote(id database.ID) *Vote {
	row, _ := q.tables.Votes.Get(id)
	return &Vote{q: q, row: row}
}

type Vote struct {
	q   *Query
	row *database.Row[ledger.Vote]
}

func (v *Vote) Voter() *Member {
	return v.q.Member(v.row.Value.Voter)
}

// Candidate is nil for an abstention
func (v *Vote) Candidate() *Member {
	return v.q.Member(v.row.Value.Candidate)
}

func (v *Vote) Group() *ElectionGroup {
	return v.q.group(v.row.Value.GroupID)
}

type Induction struct {
	q   *Query
	row *database.Row[ledger.Induction]
}

func (i *Induction) ID() uint64 {
	return i.row.Value.ID
}

func (i *Induction) Inviter() *Member {
	return i.q.Member(i.row.Value.Inviter)
}

func (i *Induction) Invitee() *Member {
	return i.q.Member(i.row.Value.Invitee)
}

func (i *Induction) Witnesses() []*Member {
	return i.q.members(i.row.Value.Witnesses)
}

func (i *Induction) Profile() ledger.Profile {
	return i.row.Value.Profile
}

func (i *Induction) Video() string {
	return i.row.Value.Video
}

// BlockLog exposes the accepted block history
type BlockLog struct {
	log *chain.BlockLog
}

func (b *BlockLog) Irreversible() uint32 {
	return b.log.Irreversible()
}

// Head returns nil for an empty log
func (b *BlockLog) Head() *chain.Block {
	return b.log.Head()
}

func (b *BlockLog) Len() int {
	return b.log.Len()
}

func (b *BlockLog) Block(num uint32) *chain.Block {
	return b.log.BlockByNum(num)
}

func (b *BlockLog) BlockBySourceNum(sourceNum uint32) *chain.Block {
	return b.log.BlockBySourceNum(sourceNum)
}
