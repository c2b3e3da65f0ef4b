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

package query_test

import (
	"fmt"
	"testing"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/ledger"
	"github.com/blinklabs-io/microchain/query"
	"github.com/blinklabs-io/microchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

// memberNames are in ascending name order
var memberNames = []string{
	"alice", "bob", "carol", "dave", "erin",
	"frank", "grace", "heidi", "ivan", "judy",
}

func newTestQuery(t *testing.T) (*query.Query, *ledger.Tables) {
	t.Helper()
	tables := ledger.NewTables(database.New(nil))
	for _, name := range memberNames {
		tables.Members.Insert(func(m *ledger.Member) {
			m.Account = types.MustName(name)
			m.Inviter = types.MustName("alice")
			m.InductionWitnesses = []types.Name{
				types.MustName("bob"),
				types.MustName("nobody"),
				types.Name(1),
			}
		})
	}
	return query.New(tables, chain.NewBlockLog()), tables
}

func accounts(conn query.Connection[*query.Member]) []string {
	var ret []string
	for _, m := range conn.Nodes() {
		ret = append(ret, m.Account().String())
	}
	return ret
}

func TestPagingForwardCoversRangeOnce(t *testing.T) {
	q, _ := newTestQuery(t)
	for n := uint32(1); n <= uint32(len(memberNames))+1; n++ {
		t.Run(fmt.Sprintf("first=%d", n), func(t *testing.T) {
			var got []string
			var after *string
			for pages := 0; ; pages++ {
				require.Less(t, pages, len(memberNames)+1, "paging did not terminate")
				conn := q.Members(query.NameRange{}, query.ConnectionArgs{First: ptr(n), After: after})
				got = append(got, accounts(conn)...)
				assert.Equal(t, pages > 0, conn.PageInfo.HasPreviousPage)
				if !conn.PageInfo.HasNextPage {
					break
				}
				require.NotEmpty(t, conn.Edges)
				after = ptr(conn.PageInfo.EndCursor)
			}
			assert.Equal(t, memberNames, got)
		})
	}
}

func TestPagingBackwardCoversRangeOnce(t *testing.T) {
	q, _ := newTestQuery(t)
	for n := uint32(1); n <= uint32(len(memberNames)); n++ {
		var got []string
		var before *string
		for {
			conn := q.Members(query.NameRange{}, query.ConnectionArgs{Last: ptr(n), Before: before})
			got = append(accounts(conn), got...)
			if !conn.PageInfo.HasPreviousPage {
				break
			}
			before = ptr(conn.PageInfo.StartCursor)
		}
		assert.Equal(t, memberNames, got, "last=%d", n)
	}
}

func TestExactRemainingCountHasNoNextPage(t *testing.T) {
	q, _ := newTestQuery(t)
	conn := q.Members(
		query.NameRange{Ge: ptr(types.MustName("frank"))},
		query.ConnectionArgs{First: ptr(uint32(5))},
	)
	assert.Equal(t, []string{"frank", "grace", "heidi", "ivan", "judy"}, accounts(conn))
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.True(t, conn.PageInfo.HasPreviousPage)
}

func TestBounds(t *testing.T) {
	q, _ := newTestQuery(t)
	bob := types.MustName("bob")
	erin := types.MustName("erin")
	testDefs := []struct {
		name     string
		r        query.NameRange
		expected []string
	}{
		{
			name:     "gt lt",
			r:        query.NameRange{Gt: &bob, Lt: &erin},
			expected: []string{"carol", "dave"},
		},
		{
			name:     "ge le",
			r:        query.NameRange{Ge: &bob, Le: &erin},
			expected: []string{"bob", "carol", "dave", "erin"},
		},
		{
			name:     "ge wins over gt",
			r:        query.NameRange{Gt: &bob, Ge: &bob, Le: &erin},
			expected: []string{"bob", "carol", "dave", "erin"},
		},
		{
			name:     "le wins over lt",
			r:        query.NameRange{Lt: &bob, Le: &bob},
			expected: []string{"alice", "bob"},
		},
		{
			name:     "empty range",
			r:        query.NameRange{Gt: &erin, Lt: &bob},
			expected: nil,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			conn := q.Members(testDef.r, query.ConnectionArgs{})
			assert.Equal(t, testDef.expected, accounts(conn))
			assert.False(t, conn.PageInfo.HasNextPage)
		})
	}
}

func TestFirstThenLast(t *testing.T) {
	q, _ := newTestQuery(t)
	conn := q.Members(
		query.NameRange{},
		query.ConnectionArgs{First: ptr(uint32(4)), Last: ptr(uint32(2))},
	)
	assert.Equal(t, []string{"carol", "dave"}, accounts(conn))
	assert.True(t, conn.PageInfo.HasPreviousPage)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, conn.Edges[0].Cursor, conn.PageInfo.StartCursor)
	assert.Equal(t, conn.Edges[1].Cursor, conn.PageInfo.EndCursor)
}

func TestInvalidCursorYieldsEmptyPage(t *testing.T) {
	q, _ := newTestQuery(t)
	conn := q.Members(query.NameRange{}, query.ConnectionArgs{After: ptr("not-hex")})
	assert.Empty(t, conn.Edges)
	assert.False(t, conn.PageInfo.HasNextPage)
	conn = q.Members(query.NameRange{}, query.ConnectionArgs{Before: ptr("zz")})
	assert.Empty(t, conn.Edges)
}

func TestCursorOutsideRange(t *testing.T) {
	q, _ := newTestQuery(t)
	erin := types.MustName("erin")
	judy := q.Members(query.NameRange{}, query.ConnectionArgs{Last: ptr(uint32(1))})
	require.Len(t, judy.Edges, 1)
	conn := q.Members(
		query.NameRange{Le: &erin},
		query.ConnectionArgs{After: ptr(judy.PageInfo.EndCursor)},
	)
	assert.Empty(t, conn.Edges)
}

func TestMemberPlaceholders(t *testing.T) {
	q, _ := newTestQuery(t)
	alice := q.Member(types.MustName("alice"))
	require.NotNil(t, alice)
	assert.True(t, alice.Exists())
	assert.Equal(t, "alice", alice.Inviter().Account().String())
	// Name(1) is a numeric placeholder and is dropped
	witnesses := alice.InductionWitnesses()
	require.Len(t, witnesses, 2)
	assert.True(t, witnesses[0].Exists())
	assert.False(t, witnesses[1].Exists())
	assert.Equal(t, "nobody", witnesses[1].Account().String())
	assert.Nil(t, witnesses[1].Profile())
	assert.Nil(t, witnesses[1].Inviter())
	assert.False(t, witnesses[1].Participating())

	assert.Nil(t, q.Member(types.Name(0)))
	assert.Nil(t, q.Member(types.Name(0x11)))
}

func TestElectionAccessors(t *testing.T) {
	q, tables := newTestQuery(t)
	alice := types.MustName("alice")
	bob := types.MustName("bob")
	t1 := types.BlockTimestamp(1000)
	t2 := types.BlockTimestamp(2000)
	var final database.ID
	for _, et := range []types.BlockTimestamp{t1, t2} {
		tables.Elections.Insert(func(e *ledger.Election) {
			e.Time = et
		})
		for round := range uint8(3) {
			group := tables.ElectionGroups.Insert(func(g *ledger.ElectionGroup) {
				g.ElectionTime = et
				g.Round = round
				g.Winner = bob
			})
			tables.Votes.Insert(func(v *ledger.Vote) {
				v.ElectionTime = et
				v.GroupID = group.ID
				v.Voter = alice
				v.Candidate = bob
			})
			tables.Votes.Insert(func(v *ledger.Vote) {
				v.ElectionTime = et
				v.GroupID = group.ID
				v.Voter = bob
			})
			if et == t1 && round == 2 {
				final = group.ID
			}
		}
	}
	row, ok := tables.Elections.Find(ledger.IndexByPK, ledger.ElectionKey(t1))
	require.True(t, ok)
	tables.Elections.Modify(row, func(e *ledger.Election) {
		e.FinalGroupID = &final
	})

	elections := q.Elections(query.TimeRange{Gt: &t1}, query.ConnectionArgs{})
	require.Len(t, elections.Edges, 1)
	assert.Equal(t, t2, elections.Edges[0].Node.Time())
	assert.Nil(t, elections.Edges[0].Node.FinalGroup())

	election := q.Election(t1)
	require.NotNil(t, election)
	groups := election.GroupsByRound(query.RoundRange{}, query.ConnectionArgs{})
	require.Len(t, groups.Edges, 3)
	for i, edge := range groups.Edges {
		assert.Equal(t, uint8(i), edge.Node.Round())
		assert.Equal(t, t1, edge.Node.Election().Time())
	}
	groups = election.GroupsByRound(
		query.RoundRange{Gt: ptr(uint8(0)), Lt: ptr(uint8(2))},
		query.ConnectionArgs{},
	)
	require.Len(t, groups.Edges, 1)
	assert.Equal(t, uint8(1), groups.Edges[0].Node.Round())
	groups = election.GroupsByRound(
		query.RoundRange{Ge: ptr(uint8(1)), Le: ptr(uint8(1))},
		query.ConnectionArgs{},
	)
	require.Len(t, groups.Edges, 1)
	assert.False(t, groups.PageInfo.HasPreviousPage)

	finalGroup := election.FinalGroup()
	require.NotNil(t, finalGroup)
	assert.Equal(t, uint8(2), finalGroup.Round())
	assert.Equal(t, "bob", finalGroup.Winner().Account().String())
	votes := finalGroup.Votes()
	require.Len(t, votes, 2)
	assert.Equal(t, "alice", votes[0].Voter().Account().String())
	assert.Equal(t, "bob", votes[0].Candidate().Account().String())
	assert.Nil(t, votes[1].Candidate())
	assert.Equal(t, finalGroup.ID(), votes[0].Group().ID())

	memberElections := q.Member(alice).Elections(query.TimeRange{}, query.ConnectionArgs{})
	require.Len(t, memberElections.Edges, 2)
	aliceVotes := memberElections.Edges[0].Node.Votes(query.ConnectionArgs{})
	require.Len(t, aliceVotes.Edges, 3)
	for _, edge := range aliceVotes.Edges {
		assert.Equal(t, "alice", edge.Node.Voter().Account().String())
		assert.Equal(t, t1, edge.Node.Group().Election().Time())
	}
}

func TestStatusAndInductions(t *testing.T) {
	q, tables := newTestQuery(t)
	assert.Nil(t, q.Status())
	tables.Status.Insert(func(s *ledger.Status) {
		s.Community = "Eden"
		s.InitialMembers = []types.Name{types.MustName("alice"), types.Name(3)}
	})
	status := q.Status()
	require.NotNil(t, status)
	assert.Equal(t, "Eden", status.Community())
	assert.Len(t, status.InitialMembers(), 1)

	dave := types.MustName("dave")
	for id := uint64(1); id <= 3; id++ {
		tables.Inductions.Insert(func(i *ledger.Induction) {
			i.ID = id
			i.Inviter = types.MustName("alice")
			i.Invitee = dave
			if id == 2 {
				i.Invitee = types.MustName("oscar")
			}
		})
	}
	all := q.Inductions(query.IDRange{Ge: ptr(uint64(2))}, query.ConnectionArgs{})
	require.Len(t, all.Edges, 2)
	assert.Equal(t, uint64(2), all.Edges[0].Node.ID())
	forDave := q.InductionsByInvitee(dave, query.ConnectionArgs{})
	require.Len(t, forDave.Edges, 2)
	assert.Equal(t, uint64(1), forDave.Edges[0].Node.ID())
	assert.Equal(t, uint64(3), forDave.Edges[1].Node.ID())
	assert.Equal(t, "dave", forDave.Edges[0].Node.Invitee().Account().String())

	assert.Equal(t, 0, q.BlockLog().Len())
	assert.Nil(t, q.BlockLog().Head())
}
