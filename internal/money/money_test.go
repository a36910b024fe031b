package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	require.Equal(t, "12608.33", Round2(D("12608.334")).StringFixed(2))
	require.Equal(t, "12608.34", Round2(D("12608.335")).StringFixed(2))
	require.Equal(t, "100.00", Round2(D("100")).StringFixed(2))
}

func TestRound3Volumes(t *testing.T) {
	require.Equal(t, "125.456", Round3(D("125.4559")).StringFixed(3))
	require.Equal(t, "125.455", Round3(D("125.4554")).StringFixed(3))
}

func TestWithinCent(t *testing.T) {
	require.True(t, WithinCent(D("100.00"), D("100.01")))
	require.True(t, WithinCent(D("100.01"), D("100.00")))
	require.False(t, WithinCent(D("100.00"), D("100.02")))
	require.True(t, WithinCent(D("0"), D("0")))
}

func TestDPanicsOnBadLiteral(t *testing.T) {
	require.Panics(t, func() { D("12,50") })
}
