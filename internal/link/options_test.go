package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/banshee-data/flightlink/internal/config"
)

func TestPortOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr string
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, ""},
		{"long parity names", PortOptions{BaudRate: 9600, Parity: " even "}, PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "E"}, ""},
		{"mark", PortOptions{Parity: "mark", StopBits: 2}, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 2, Parity: "M"}, ""},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, "data bits"},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, "stop bits"},
		{"bad parity", PortOptions{Parity: "Q"}, PortOptions{}, "parity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.Normalize()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	t.Parallel()

	mode, err := PortOptions{BaudRate: 57600, DataBits: 7, StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 57600, DataBits: 7, Parity: serial.OddParity, StopBits: serial.TwoStopBits}, mode)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)

	_, err = PortOptions{Parity: "?"}.SerialMode()
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	opts := OptionsFromConfig(config.EmptyLinkConfig())
	assert.Equal(t, "115200 8N1", opts.String())

	baud := 9600
	parity := "E"
	opts = OptionsFromConfig(&config.LinkConfig{BaudRate: &baud, Parity: &parity})
	assert.Equal(t, "9600 8E1", opts.String())
	assert.Contains(t, PortOptions{DataBits: 4}.String(), "invalid")
}
