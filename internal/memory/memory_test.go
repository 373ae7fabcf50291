package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Memory
		wantErr bool
	}{
		{name: "plain bytes", value: "1024", want: Kilobyte},
		{name: "kilobytes", value: "64k", want: 64 * Kilobyte},
		{name: "megabytes upper case", value: "256M", want: 256 * Megabyte},
		{name: "gigabytes", value: "2g", want: 2 * Gigabyte},
		{name: "explicit bytes suffix", value: "12b", want: 12},
		{name: "empty", value: "", wantErr: true},
		{name: "garbage", value: "lots", wantErr: true},
		{name: "negative", value: "-5m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.value)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryString(t *testing.T) {
	assert.Equal(t, "256m", (256 * Megabyte).String())
	assert.Equal(t, "1g", Gigabyte.String())
	assert.Equal(t, "64k", (64 * Kilobyte).String())
	assert.Equal(t, "100b", Memory(100).String())
}
