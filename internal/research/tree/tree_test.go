package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamprincipal/paddock/internal/domain/car"
	"github.com/teamprincipal/paddock/internal/research"
)

func TestDefaultTreeBuildsGraph(t *testing.T) {
	defs := Default()
	require.NotEmpty(t, defs)

	g, err := research.NewGraph(car.New(), defs, research.Config{TotalEngineers: 50})
	require.NoError(t, err)

	n, ok := g.Node("aero_adv")
	require.True(t, ok)
	assert.Equal(t, research.StateLocked, n.State)
	assert.Equal(t, []string{"aero_eff"}, n.MutuallyExclusive)

	root, _ := g.Node("aero_b1")
	assert.Equal(t, research.StateAvailable, root.State)
}

func TestParseAcceptsCommentsAndTrailingCommas(t *testing.T) {
	data := []byte(`[
		// one node
		{"id": "x", "rp_cost": 1, "base_workload": 2, "effects": {"aero.downforce": 1},},
	]`)
	defs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, 1, defs[0].Effects["aero.downforce"])
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"id": `))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "only", "base_workload": 10}]`), 0o644))

	defs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	defs, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, len(Default()), len(defs))

	_, err = Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.Error(t, err)
}
