package gateway

import (
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zipties/toolarr/internal/authserver"
)

func TestRegistry(t *testing.T) {
	var readCalls, adminCalls atomic.Int32
	registry := newTestRegistry(t, &readCalls, &adminCalls)

	assert.Equal(t, 2, registry.Len())

	scope, ok := registry.RequiredScope("delete_things")
	require.True(t, ok)
	assert.Equal(t, authserver.ScopeAdmin, scope)

	_, ok = registry.RequiredScope("missing")
	assert.False(t, ok)

	ops := registry.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "delete_things", ops[0].Name())
	assert.Equal(t, "list_things", ops[1].Name())

	op, ok := registry.Get("list_things")
	require.True(t, ok)
	assert.Equal(t, authserver.ScopeRead, op.Scope)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	var calls atomic.Int32
	valid := textHandler("x", &calls)
	valid.Tool = mcp.NewTool("valid")
	valid.Scope = authserver.ScopeRead

	noScope := valid
	noScope.Scope = ""

	noHandler := valid
	noHandler.Handler = nil

	noName := valid
	noName.Tool = mcp.NewTool("")

	registry := NewRegistry()
	assert.Error(t, registry.Register(noScope))
	assert.Error(t, registry.Register(noHandler))
	assert.Error(t, registry.Register(noName))
	require.NoError(t, registry.Register(valid))
	assert.Error(t, registry.Register(valid), "duplicate names are rejected")
	assert.Equal(t, 1, registry.Len())
}

func TestIdentity(t *testing.T) {
	id := Identity{ClientID: "mcp-x", Scopes: authserver.NewScopes(authserver.ScopeRead)}
	assert.True(t, id.HasScope(authserver.ScopeRead))
	assert.False(t, id.HasScope(authserver.ScopeWrite))
	assert.Equal(t, "mcp-x", id.Subject())
	assert.Equal(t, "legacy-api-key", Identity{Legacy: true}.Subject())
}
