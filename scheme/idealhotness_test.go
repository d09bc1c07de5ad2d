package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdealHotnessEvictsColdestPage(t *testing.T) {
	h := NewIdealHotness(IdealHotnessConfig{
		NumPages: 1, PageSize: 64, LineSize: 64, DecayShift: 1,
	}, testBackends())

	h.Access(loadReq(0, 0))
	h.Access(loadReq(0, 100)) // page 0 accessed twice, freq=2
	h.Access(loadReq(1, 200)) // page 1 miss; with NumPages 1, page 0 is the only resident page and is evicted

	_, resident0 := h.resident[0]
	_, resident1 := h.resident[1]

	require.False(t, resident0)
	require.True(t, resident1)
}

func TestIdealHotnessPeriodDecaysFrequency(t *testing.T) {
	h := NewIdealHotness(IdealHotnessConfig{
		NumPages: 4, PageSize: 64, LineSize: 64, DecayShift: 1,
	}, testBackends())

	h.Access(loadReq(0, 0))
	h.Access(loadReq(0, 100))

	before := h.freqAll[0]
	h.Period(loadReq(0, 200))
	after := h.freqAll[0]

	require.Less(t, after, before)
}
