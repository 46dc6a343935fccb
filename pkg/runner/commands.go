package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies a parsed player command.
type CommandKind int

const (
	CmdChoose CommandKind = iota
	CmdSave
	CmdSaves
	CmdLoad
	CmdRestart
	CmdAutoSave
	CmdTime
	CmdHelp
	CmdQuit
)

// Command is one parsed line of player input.
type Command struct {
	Kind   CommandKind
	Option int    // 1-based option number for CmdChoose
	Arg    string // save name, save id
	On     bool   // CmdAutoSave
}

// ErrUnknownCommand is returned for lines that are neither a number nor a known command.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand parses "3", ":save name", ":load id", ":autosave on" and friends.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}

	if !strings.HasPrefix(line, ":") {
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("%w: %q (enter an option number or :help)", ErrUnknownCommand, line)
		}
		return Command{Kind: CmdChoose, Option: n}, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "save", "s":
		return Command{Kind: CmdSave, Arg: arg}, nil
	case "saves", "ls":
		return Command{Kind: CmdSaves}, nil
	case "load", "l":
		if arg == "" {
			return Command{}, errors.New("usage: :load <save-id>")
		}
		return Command{Kind: CmdLoad, Arg: arg}, nil
	case "restart", "r":
		return Command{Kind: CmdRestart}, nil
	case "autosave":
		switch strings.ToLower(arg) {
		case "on", "true", "1":
			return Command{Kind: CmdAutoSave, On: true}, nil
		case "off", "false", "0":
			return Command{Kind: CmdAutoSave, On: false}, nil
		}
		return Command{}, errors.New("usage: :autosave on|off")
	case "time", "t":
		return Command{Kind: CmdTime}, nil
	case "help", "h", "?":
		return Command{Kind: CmdHelp}, nil
	case "quit", "q", "exit":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
}

const helpText = `Commands:
  <n>               follow option n
  :save [name]      save now
  :saves            list saves of this story
  :load <save-id>   load a save
  :restart          start over
  :autosave on|off  toggle auto-save
  :time             show play time
  :quit             leave`
