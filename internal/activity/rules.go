package activity

import (
	"strings"

	"github.com/stellarlinkco/clawdash/internal/channel"
)

// MainSessionKeys are the keys of the agent's primary conversation.
var MainSessionKeys = []string{"agent:main:main", "main"}

// PrimaryChannel is where the main session is assumed to be talking.
const PrimaryChannel = channel.Telegram

type Classification struct {
	Type    Type
	Channel channel.Name
	Summary string
}

// Rule pairs a session-key predicate with the classification it yields.
type Rule struct {
	Name     string
	Match    func(key string) bool
	Classify func(key string) Classification
}

// SessionRules is evaluated top to bottom; the first match wins.
var SessionRules = []Rule{
	{
		Name:  "cron",
		Match: contains("cron"),
		Classify: func(string) Classification {
			return Classification{Type: Cron, Channel: channel.Cron, Summary: "Cron job session"}
		},
	},
	{
		Name:  "spawn",
		Match: contains("spawn"),
		Classify: func(string) Classification {
			return Classification{Type: Task, Channel: channel.Terminal, Summary: "Spawned task"}
		},
	},
	{
		Name: "channel",
		Match: func(key string) bool {
			_, ok := channel.FromSessionKey(key)
			return ok
		},
		Classify: func(key string) Classification {
			ch, _ := channel.FromSessionKey(key)
			return Classification{Type: Message, Channel: ch, Summary: "Conversation on " + displayName(ch)}
		},
	},
	{
		Name: "main",
		Match: func(key string) bool {
			for _, k := range MainSessionKeys {
				if key == k {
					return true
				}
			}
			return false
		},
		Classify: func(string) Classification {
			return Classification{Type: Message, Channel: PrimaryChannel, Summary: "Main session"}
		},
	},
}

var fallbackRule = Rule{
	Name:  "fallback",
	Match: func(string) bool { return true },
	Classify: func(string) Classification {
		return Classification{Type: Message, Channel: channel.Terminal, Summary: "Session activity"}
	},
}

// Classify returns the classification of the first matching rule and
// that rule's name.
func Classify(key string) (Classification, string) {
	for _, r := range SessionRules {
		if r.Match(key) {
			return r.Classify(key), r.Name
		}
	}
	return fallbackRule.Classify(key), fallbackRule.Name
}

func contains(token string) func(string) bool {
	return func(key string) bool {
		return strings.Contains(strings.ToLower(key), token)
	}
}

func displayName(ch channel.Name) string {
	switch ch {
	case channel.IMessage:
		return "iMessage"
	case "":
		return ""
	}
	s := string(ch)
	return strings.ToUpper(s[:1]) + s[1:]
}
