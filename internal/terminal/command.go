package terminal

import (
	"strings"

	"github.com/victornm/equiz-client/internal/domain"
)

const (
	VerbLogin  = "login"
	VerbChoose = "choose"
	VerbToggle = "toggle"
	VerbAnswer = "answer"
	VerbSubmit = "submit"
	VerbLogout = "logout"
	VerbHelp   = "help"
	VerbQuit   = "quit"
)

const Help = `login <username>  join the quiz
choose <n>        pick option n
toggle <n>        toggle option n
answer <text>     type the answer to an open question
submit            send the answer
logout            leave the quiz
quit              exit`

// Parse splits a line into a lowercase verb and the trimmed rest. Blank lines are skipped.
func Parse(line string) (domain.Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.Command{}, false
	}

	verb, arg, _ := strings.Cut(line, " ")
	return domain.Command{Verb: strings.ToLower(verb), Arg: strings.TrimSpace(arg)}, true
}
