package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		payload string
		want    Directive
		ok      bool
	}{
		{"kitchen_light:on", Directive{"kitchen_light", "on"}, true},
		{"  room_ac:22\n", Directive{"room_ac", "22"}, true},
		{"night_light : 80", Directive{"night_light", "80"}, true},
		{"sensor.temp-1:v1.5", Directive{"sensor.temp-1", "v1.5"}, true},
		{"", Directive{}, false},
		{"kitchen_light", Directive{}, false},
		{"kitchen_light:", Directive{}, false},
		{":on", Directive{}, false},
		{"a:b:c", Directive{}, false},
		{"свет:on", Directive{}, false},
		{"kitchen light:on", Directive{}, false},
		{"lamp:{\"on\":true}", Directive{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := ParseDirective(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.NotEmpty(t, got.DeviceID)
				assert.NotEmpty(t, got.Value)
			}
		})
	}
}

func TestDirectivesKeepsDocumentOrder(t *testing.T) {
	reply := "Ладно. <command>kitchen_light:off</command> и ещё " +
		"<COMMAND>bad payload</COMMAND><command>room_ac:22</command>"

	found, skipped := Directives(reply)

	require.Len(t, found, 2)
	assert.Equal(t, Directive{"kitchen_light", "off"}, found[0])
	assert.Equal(t, Directive{"room_ac", "22"}, found[1])
	assert.Equal(t, []string{"bad payload"}, skipped)
}

func TestDirectiveString(t *testing.T) {
	assert.Equal(t, "main_lock:lock", Directive{"main_lock", "lock"}.String())
}
