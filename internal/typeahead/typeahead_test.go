package typeahead

import (
	"testing"

	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/stretchr/testify/assert"
)

var roster = []directory.EmployeeIdentity{
	{Identifier: "EMP-100", DisplayName: "Priya Nair"},
	{Identifier: "EMP-101", DisplayName: "Arjun Mehta"},
	{Identifier: "EMP-200", DisplayName: "Nairobi Clark"},
	{Identifier: "CTR-007", DisplayName: "Émile Durand"},
}

func identifiers(list []directory.EmployeeIdentity) []string {
	out := make([]string, 0, len(list))
	for _, identity := range list {
		out = append(out, identity.Identifier)
	}
	return out
}

func TestFilterMatchesEitherField(t *testing.T) {
	assert.Equal(t, []string{"EMP-100", "EMP-200"}, identifiers(Filter("nair", roster)))
	assert.Equal(t, []string{"EMP-100", "EMP-101"}, identifiers(Filter("emp-10", roster)))
	assert.Equal(t, []string{"CTR-007"}, identifiers(Filter("ÉMILE", roster)))
}

func TestFilterBlankQueryHidesList(t *testing.T) {
	assert.Nil(t, Filter("", roster))
	assert.Nil(t, Filter("   ", roster))
}

func TestFilterPreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"EMP-100", "EMP-101", "EMP-200"}, identifiers(Filter("emp", roster)))
}

func TestFilterIsIdempotent(t *testing.T) {
	for _, query := range []string{"a", "nair", "EMP", "7", "zzz"} {
		once := Filter(query, roster)
		assert.Equal(t, once, Filter(query, once), "query %q", query)
	}
}

func TestEverySubstringOfDisplayNameFindsIdentity(t *testing.T) {
	for _, identity := range roster {
		runes := []rune(identity.DisplayName)
		for start := 0; start < len(runes); start++ {
			for end := start + 1; end <= len(runes); end++ {
				query := string(runes[start:end])
				if len([]rune(query)) > 0 && query != " " {
					assert.Contains(t, Filter(query, roster), identity, "query %q", query)
				}
			}
		}
	}
}

func TestIndexLimitAndState(t *testing.T) {
	index := NewIndex(roster, 2)
	assert.Equal(t, []string{"EMP-100", "EMP-101"}, identifiers(index.Suggest("emp")))
	assert.Equal(t, 4, index.Len())

	failed := FromState(directory.State{Phase: directory.Failed, Reason: "down"}, 0)
	assert.Equal(t, 0, failed.Len())
	assert.Nil(t, failed.Suggest("a"))

	ready := FromState(directory.State{Phase: directory.Ready, Identities: roster}, 0)
	assert.Len(t, ready.Suggest("e"), 4)
}
