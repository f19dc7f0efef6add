package application

import (
	"regexp"
	"sort"
	"strings"

	"txledger/internal/domain"
)

type Command int

const (
	CommandNone Command = iota
	CommandStatus
	CommandGet
	CommandLog
	CommandHelp
)

func (c Command) String() string {
	switch c {
	case CommandStatus:
		return "status"
	case CommandGet:
		return "get"
	case CommandLog:
		return "log"
	case CommandHelp:
		return "help"
	default:
		return "none"
	}
}

func (c Command) RequiresHash() bool {
	return c == CommandStatus || c == CommandGet || c == CommandLog
}

// Keyword binds an operator token to a command.
type Keyword struct {
	Token   string
	Command Command
}

var DefaultKeywords = []Keyword{
	{Token: "!status", Command: CommandStatus},
	{Token: "!get", Command: CommandGet},
	{Token: "!log", Command: CommandLog},
	{Token: "!help", Command: CommandHelp},
}

var quotedHashPattern = regexp.MustCompile(`"([a-fA-F0-9]{64})"`)

// ParsedCommand is the parser output. Hash is empty when no valid hash was found.
type ParsedCommand struct {
	Command Command
	Hash    domain.TransactionHash
}

func (p ParsedCommand) HasHash() bool {
	return p.Hash != ""
}

type CommandParser struct {
	mention  string
	keywords []Keyword
}

// NewCommandParser builds a parser that strips the <@botUserID> mention. Nil keywords means DefaultKeywords.
func NewCommandParser(botUserID string, keywords []Keyword) *CommandParser {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	sorted := make([]Keyword, len(keywords))
	copy(sorted, keywords)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Token) > len(sorted[j].Token)
	})
	mention := ""
	if id := strings.TrimSpace(botUserID); id != "" {
		mention = "<@" + id + ">"
	}
	return &CommandParser{mention: mention, keywords: sorted}
}

func (p *CommandParser) Parse(rawText string) ParsedCommand {
	text := rawText
	if p.mention != "" {
		text = strings.ReplaceAll(text, p.mention, "")
	}
	text = strings.TrimSpace(text)

	keyword, ok := p.match(text)
	if !ok {
		return ParsedCommand{Command: CommandNone}
	}
	if keyword.Command == CommandHelp {
		return ParsedCommand{Command: CommandHelp}
	}
	rest := strings.TrimSpace(text[len(keyword.Token):])
	return ParsedCommand{Command: keyword.Command, Hash: extractHash(rest)}
}

// MentionsKeyword is the "did you mean" check for input that did not parse:
// true when any keyword appears anywhere in the text.
func (p *CommandParser) MentionsKeyword(rawText string) bool {
	for _, keyword := range p.keywords {
		if strings.Contains(rawText, keyword.Token) {
			return true
		}
	}
	return false
}

func (p *CommandParser) Keywords() []Keyword {
	out := make([]Keyword, len(p.keywords))
	copy(out, p.keywords)
	return out
}

// match picks the longest keyword that prefixes text.
func (p *CommandParser) match(text string) (Keyword, bool) {
	for _, keyword := range p.keywords {
		if strings.HasPrefix(text, keyword.Token) {
			return keyword, true
		}
	}
	return Keyword{}, false
}

func extractHash(text string) domain.TransactionHash {
	if match := quotedHashPattern.FindStringSubmatch(text); match != nil {
		if hash, err := domain.ParseHash(match[1]); err == nil {
			return hash
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	hash, err := domain.ParseHash(fields[0])
	if err != nil {
		return ""
	}
	return hash
}
