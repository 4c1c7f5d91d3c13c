package car

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStat(t *testing.T) {
	for _, s := range Stats() {
		parsed, err := ParseStat(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStat("aero.wings")
	assert.Error(t, err)
	_, err = ParseStat("downforce")
	assert.Error(t, err)
}

func TestStatCategory(t *testing.T) {
	assert.Equal(t, CategoryAero, Downforce.Category())
	assert.Equal(t, CategoryChassis, TirePreservation.Category())
	assert.Equal(t, CategoryPowertrain, Reliability.Category())
	assert.Equal(t, Category(""), Stat(0).Category())
}

func TestApplyIsUnclamped(t *testing.T) {
	c := NewWithStats(98, 50, 50, 50, 50, 3)

	assert.Equal(t, 108, c.Apply(Downforce, 10))
	assert.Equal(t, -2, c.Apply(Reliability, -5))
	assert.Equal(t, 108, c.Aero.Downforce)
	assert.Equal(t, -2, c.Powertrain.Reliability)
}

func TestStatTextRoundTripInMapKeys(t *testing.T) {
	effects := map[Stat]int{Downforce: 5, DragEfficiency: -5}
	data, err := json.Marshal(effects)
	require.NoError(t, err)
	assert.JSONEq(t, `{"aero.downforce":5,"aero.drag_efficiency":-5}`, string(data))

	var decoded map[Stat]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, effects, decoded)

	err = json.Unmarshal([]byte(`{"aero.flux":1}`), &decoded)
	assert.Error(t, err)
}

func TestOverallPerformance(t *testing.T) {
	c := New()
	assert.Equal(t, (50+50+50+50+50+80)/6, c.OverallPerformance())
}

func TestCloneIsIndependent(t *testing.T) {
	c := New()
	cp := c.Clone()
	cp.Apply(PowerOutput, 20)
	assert.Equal(t, 50, c.Powertrain.PowerOutput)
	assert.Equal(t, 70, cp.Powertrain.PowerOutput)
}
