package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("canonical form", func(t *testing.T) {
		sc, err := Parse("resource_group:acme:probe_group:prod:probes:read")
		require.NoError(t, err)
		assert.Equal(t, Component("acme"), sc.ResourceGroup)
		assert.Equal(t, Component("prod"), sc.ProbeGroup)
		assert.Equal(t, Component("probes"), sc.Resource)
		assert.Equal(t, Component("read"), sc.Action)
	})

	t.Run("wildcard components", func(t *testing.T) {
		sc, err := Parse("resource_group:*:probe_group:*:probes:read")
		require.NoError(t, err)
		assert.True(t, sc.ResourceGroup.IsWildcard())
		assert.True(t, sc.ProbeGroup.IsWildcard())
		assert.Equal(t, Component("probes"), sc.Resource)
	})

	t.Run("abbreviated form without labels", func(t *testing.T) {
		sc, err := Parse("*:*:alerts:write")
		require.NoError(t, err)
		assert.Equal(t, Scope{Wildcard, Wildcard, "alerts", "write"}, sc)
	})

	t.Run("partially labeled form", func(t *testing.T) {
		sc, err := Parse("resource_group:acme:*:*:*")
		require.NoError(t, err)
		assert.Equal(t, Scope{"acme", Wildcard, Wildcard, Wildcard}, sc)
	})

	t.Run("too few components", func(t *testing.T) {
		for _, s := range []string{"", "probes", "probes:read", "*:*:read", "resource_group:acme:probe_group:prod"} {
			_, err := Parse(s)
			assert.ErrorIs(t, err, ErrInvalidScopeFormat, "input %q", s)
		}
	})

	t.Run("empty component", func(t *testing.T) {
		_, err := Parse("resource_group::probe_group:prod:probes:read")
		assert.ErrorIs(t, err, ErrInvalidScopeFormat)

		_, err = Parse("a:b:probes:")
		assert.ErrorIs(t, err, ErrInvalidScopeFormat)

		_, err = Parse("a:b::read")
		assert.ErrorIs(t, err, ErrInvalidScopeFormat)
	})

	t.Run("trailing components", func(t *testing.T) {
		_, err := Parse("resource_group:acme:probe_group:prod:probes:read:extra")
		assert.ErrorIs(t, err, ErrInvalidScopeFormat)
	})
}

func TestBuildRoundTrip(t *testing.T) {
	tuples := []Scope{
		{"acme", "prod", "probes", "read"},
		{Wildcard, "prod", "alerts", "write"},
		{"acme", Wildcard, "resources", "delete"},
		{"acme", "prod", Wildcard, "read"},
		{"acme", "prod", "probes", Wildcard},
		{Wildcard, Wildcard, Wildcard, Wildcard},
	}

	for _, tuple := range tuples {
		built := Build(tuple.ResourceGroup, tuple.ProbeGroup, tuple.Resource, tuple.Action)
		parsed, err := Parse(built)
		require.NoError(t, err, "built %q", built)
		assert.Equal(t, tuple, parsed, "round trip of %q", built)
		assert.Equal(t, built, parsed.String())
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		scope string
		level Level
	}{
		{"resource_group:*:probe_group:*:*:*", LevelPlatform},
		{"resource_group:*:probe_group:prod:probes:read", LevelPlatform},
		{"resource_group:acme:probe_group:*:probes:read", LevelResourceGroup},
		{"resource_group:acme:probe_group:prod:*:read", LevelProbeGroup},
		{"resource_group:acme:probe_group:prod:probes:read", LevelResource},
		{"resource_group:acme:probe_group:prod:probes:*", LevelResource},
	}

	for _, tt := range tests {
		sc := MustParse(tt.scope)
		assert.Equal(t, tt.level, sc.Level(), "scope %s", tt.scope)
	}
}

func TestLevelPlatformRegardlessOfInnerValues(t *testing.T) {
	// A wildcard resource group always yields the platform level, no
	// matter what the inner components hold.
	for _, inner := range []Scope{
		{Wildcard, "prod", "probes", "read"},
		{Wildcard, Wildcard, "alerts", Wildcard},
		{Wildcard, "staging", Wildcard, "execute"},
	} {
		assert.Equal(t, LevelPlatform, inner.Level())
	}
}

func TestHasWildcard(t *testing.T) {
	assert.False(t, MustParse("resource_group:acme:probe_group:prod:probes:read").HasWildcard())
	assert.True(t, MustParse("resource_group:acme:probe_group:prod:probes:*").HasWildcard())
	assert.True(t, MustParse("resource_group:*:probe_group:prod:probes:read").HasWildcard())
}

func TestParseSet(t *testing.T) {
	scopes, err := ParseSet([]string{
		"resource_group:acme:probe_group:prod:probes:read",
		"*:*:alerts:read",
	})
	require.NoError(t, err)
	require.Len(t, scopes, 2)

	_, err = ParseSet([]string{"resource_group:acme:probe_group:prod:probes:read", "garbage"})
	assert.ErrorIs(t, err, ErrInvalidScopeFormat)
}

func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Parse("resource_group:acme:probe_group:prod:probes:read")
	}
}
