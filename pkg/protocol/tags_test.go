package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCommands(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "Просто ответ.", nil},
		{"single", "Хорошо. <command>kitchen_light:on</command>", []string{"kitchen_light:on"}},
		{
			"many",
			"<command>a:1</command> текст <command>b:2</command><command>c:3</command>",
			[]string{"a:1", "b:2", "c:3"},
		},
		{"case insensitive", "<Command>a:1</COMMAND>", []string{"a:1"}},
		{"multiline", "<command>\n  room_ac:22\n</command>", []string{"\n  room_ac:22\n"}},
		{"unterminated", "<command>a:1", nil},
		{"lazy", "<command>a:1</command>x</command>", []string{"a:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCommands(tt.text))
		})
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Хорошо.", "Хорошо."},
		{"command", "Хорошо. <command>kitchen_light:on</command>", "Хорошо. "},
		{"think", "<think>\nрассуждения\n</think>Ответ", "Ответ"},
		{"command inside think", "<think>x <command>a:1</command> y</think>Ответ", "Ответ"},
		{"think inside command", "<command>a<think>x</think>:1</command>Ответ", "Ответ"},
		{"formed after cut", "<thi<command>a:1</command>nk>x</think>Ответ", "Ответ"},
		{"upper case", "<THINK>x</THINK>Ответ", "Ответ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripTags(tt.text, ThinkTag, CommandTag)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripTags(got, ThinkTag, CommandTag))
		})
	}
}
