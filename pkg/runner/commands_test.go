package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"2", Command{Kind: CmdChoose, Option: 2}},
		{" :save my run ", Command{Kind: CmdSave, Arg: "my run"}},
		{":save", Command{Kind: CmdSave}},
		{":saves", Command{Kind: CmdSaves}},
		{":load abc", Command{Kind: CmdLoad, Arg: "abc"}},
		{":restart", Command{Kind: CmdRestart}},
		{":autosave ON", Command{Kind: CmdAutoSave, On: true}},
		{":autosave off", Command{Kind: CmdAutoSave}},
		{":time", Command{Kind: CmdTime}},
		{":q", Command{Kind: CmdQuit}},
		{":HELP", Command{Kind: CmdHelp}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{"", "0", "-1", "north", ":dance"} {
		_, err := ParseCommand(line)
		assert.ErrorIs(t, err, ErrUnknownCommand, line)
	}
	_, err := ParseCommand(":load")
	assert.Error(t, err)
	_, err = ParseCommand(":autosave sometimes")
	assert.Error(t, err)
}
