package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	p := Org("org-a").Collection(CollectionParticipants).Doc("p1").Collection(CollectionParticipantServices)

	require.Equal(t, "organizations/org-a/participants/p1/participantServices", p.String())
	require.True(t, p.IsCollection())
	require.False(t, p.IsDocument())
	require.Equal(t, "org-a", p.OrgID())
	require.Equal(t, "p1", p.Parent().ID())
	require.NoError(t, p.ValidateCollection())
	require.ErrorIs(t, p.ValidateDocument(), ErrInvalidPath)

	t.Run("parse", func(t *testing.T) {
		parsed, err := ParsePath("/organizations/org-a/services/s1/")
		require.NoError(t, err)
		require.True(t, parsed.IsDocument())
		require.Equal(t, "s1", parsed.ID())
	})

	t.Run("empty segment", func(t *testing.T) {
		_, err := ParsePath("organizations//services")
		require.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("paths do not share backing arrays", func(t *testing.T) {
		base := Org("org-a").Collection(CollectionServices)
		a := base.Doc("a")
		b := base.Doc("b")
		require.Equal(t, "a", a.ID())
		require.Equal(t, "b", b.ID())
	})

	t.Run("root paths have no org", func(t *testing.T) {
		require.Equal(t, "", Root(CollectionUsers, "u1").OrgID())
	})
}

func TestMergeData(t *testing.T) {
	dst := map[string]any{
		"organizationReport": "a.pdf",
		"programReports":     map[string]any{"Housing": "h.pdf"},
	}
	src := map[string]any{
		"programReports": map[string]any{"Outreach": "o.pdf"},
		"lastUpdated":    "now",
	}

	merged := MergeData(dst, src)
	require.Equal(t, map[string]any{
		"organizationReport": "a.pdf",
		"programReports":     map[string]any{"Housing": "h.pdf", "Outreach": "o.pdf"},
		"lastUpdated":        "now",
	}, merged)
	require.NotContains(t, dst, "lastUpdated")
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "nil before string", a: nil, b: "x", want: -1},
		{name: "numbers", a: float64(2), b: float64(1), want: 1},
		{name: "strings", a: "2024-03-01", b: "2024-03-02", want: -1},
		{name: "false before true", a: false, b: true, want: -1},
		{name: "equal", a: "x", b: "x", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CompareValues(tt.a, tt.b))
		})
	}
}
