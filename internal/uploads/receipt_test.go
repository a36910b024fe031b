package uploads

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
)

func TestParseReceiptColonLayout(t *testing.T) {
	got, err := ParseReceipt("PUMP: TX-4410\nNOZZLE 1: 125030.250\nNOZZLE 2: 98001.5\n")
	require.NoError(t, err)
	require.Equal(t, "TX-4410", got.PumpSerial)
	require.Len(t, got.Rows, 2)
	require.Equal(t, 1, got.Rows[0].NozzleNumber)
	require.True(t, got.Rows[0].Value.Equal(money.D("125030.250")))
	require.Equal(t, 2, got.Rows[1].NozzleNumber)
}

func TestParseReceiptAbbreviatedLayout(t *testing.T) {
	got, err := ParseReceipt("S/N: TX4410\nNOZ 3 : 55100\nN4 88200.125")
	require.NoError(t, err)
	require.Equal(t, "TX4410", got.PumpSerial)
	require.Len(t, got.Rows, 2)
	require.Equal(t, 3, got.Rows[0].NozzleNumber)
	require.Equal(t, 4, got.Rows[1].NozzleNumber)
	require.True(t, got.Rows[1].Value.Equal(money.D("88200.125")))
}

func TestParseReceiptSerialOnly(t *testing.T) {
	got, err := ParseReceipt("pump serial tx-9001\ntotal sales 4411.50")
	require.NoError(t, err)
	require.Equal(t, "TX-9001", got.PumpSerial)
}

func TestParseReceiptGarbage(t *testing.T) {
	_, err := ParseReceipt("thank you for your purchase\nhave a nice day")
	require.Error(t, err)
}

func TestDefaultFuelFor(t *testing.T) {
	require.Equal(t, "petrol", DefaultFuelFor(1))
	require.Equal(t, "petrol", DefaultFuelFor(2))
	require.Equal(t, "diesel", DefaultFuelFor(3))
	require.Equal(t, "diesel", DefaultFuelFor(4))
	require.Equal(t, "petrol", DefaultFuelFor(5))
}
