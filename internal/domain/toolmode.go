package domain

import "fmt"

// ToolMode selects the assistant template and theme.
type ToolMode string

const (
	ModeMath        ToolMode = "MATH"
	ModeKnowledge   ToolMode = "KNOWLEDGE"
	ModeGift        ToolMode = "GIFT"
	ModeSpellingBee ToolMode = "SPELLING_BEE"
	ModeWordOfDay   ToolMode = "WORD_OF_THE_DAY"
	ModeMotivation  ToolMode = "MOTIVATION"
	ModeScienceLab  ToolMode = "SCIENCE_LAB"
	ModeCodeSandbox ToolMode = "CODE_SANDBOX"
	ModeStory       ToolMode = "STORY"
)

// Theme is the colour set the front end applies for a mode.
type Theme struct {
	Background string `json:"bg"`
	Border     string `json:"border"`
	Text       string `json:"text"`
}

// ToolSpec describes the fixed behaviour of a tool mode.
type ToolSpec struct {
	Mode        ToolMode `json:"mode"`
	Title       string   `json:"title"`
	Placeholder string   `json:"placeholder"`
	Theme       Theme    `json:"theme"`
	// AutoQuery is issued as soon as the tool opens; empty means wait for input.
	AutoQuery string `json:"-"`
	// Search enables search grounding on the request.
	Search bool `json:"search"`
	// FinalAnswer requires responses to end with a "Final Answer:" line.
	FinalAnswer bool `json:"final_answer"`
	// ErrorText replaces any provider failure in this mode.
	ErrorText string `json:"-"`
}

// AutoFire returns true for modes that query immediately on open.
func (s ToolSpec) AutoFire() bool {
	return s.AutoQuery != ""
}

const defaultErrorText = "Error: The academic neural pathway was interrupted. Please verify connectivity and try again."

var toolSpecs = map[ToolMode]ToolSpec{
	ModeMath: {
		Mode: ModeMath, Title: "Math Solver",
		Placeholder: "Enter an equation or word problem...",
		Theme:       Theme{"bg-orange-600/10", "border-orange-500/20", "text-orange-400"},
		FinalAnswer: true,
		ErrorText:   defaultErrorText,
	},
	ModeKnowledge: {
		Mode: ModeKnowledge, Title: "Knowledge Lookup",
		Placeholder: "Ask about any topic...",
		Theme:       Theme{"bg-green-600/10", "border-green-500/20", "text-green-400"},
		Search:      true,
		ErrorText:   defaultErrorText,
	},
	ModeGift: {
		Mode: ModeGift, Title: "Daily Fact",
		Placeholder: "Unwrap another fact...",
		Theme:       Theme{"bg-red-600/10", "border-red-500/20", "text-red-400"},
		AutoQuery:   "Share today's festive fact.",
		ErrorText:   "The gift box jammed. Try unwrapping again.",
	},
	ModeSpellingBee: {
		Mode: ModeSpellingBee, Title: "Spelling Bee",
		Placeholder: "Type the word you hear...",
		Theme:       Theme{"bg-yellow-600/10", "border-yellow-500/20", "text-yellow-400"},
		ErrorText:   "Audio stream corrupted by ghosts.",
	},
	ModeWordOfDay: {
		Mode: ModeWordOfDay, Title: "Word of the Day",
		Placeholder: "Ask for a word or a theme...",
		Theme:       Theme{"bg-purple-600/10", "border-purple-500/20", "text-purple-400"},
		ErrorText:   "The dictionary is closed for the holidays. Try again shortly.",
	},
	ModeMotivation: {
		Mode: ModeMotivation, Title: "Motivation",
		Placeholder: "Need another boost?",
		Theme:       Theme{"bg-pink-600/10", "border-pink-500/20", "text-pink-400"},
		AutoQuery:   "Give me a motivational quote for studying today.",
		ErrorText:   "Motivation engine stalled. Take a breath and try again.",
	},
	ModeScienceLab: {
		Mode: ModeScienceLab, Title: "Science Lab",
		Placeholder: "Describe an experiment or a science question...",
		Theme:       Theme{"bg-cyan-600/10", "border-cyan-500/20", "text-cyan-400"},
		FinalAnswer: true,
		ErrorText:   "The lab equipment overheated. Please retry the experiment.",
	},
	ModeCodeSandbox: {
		Mode: ModeCodeSandbox, Title: "Code Sandbox",
		Placeholder: "Paste code or describe a program...",
		Theme:       Theme{"bg-blue-600/10", "border-blue-500/20", "text-blue-400"},
		ErrorText:   "The sandbox crashed. Please resubmit your code.",
	},
	ModeStory: {
		Mode: ModeStory, Title: "Story Generator",
		Placeholder: "Give a character, a place, or a twist...",
		Theme:       Theme{"bg-amber-600/10", "border-amber-500/20", "text-amber-400"},
		ErrorText:   "The storyteller lost the plot. Try another prompt.",
	},
}

// Modes lists tool modes in display order.
var Modes = []ToolMode{
	ModeMath, ModeKnowledge, ModeGift, ModeSpellingBee, ModeWordOfDay,
	ModeMotivation, ModeScienceLab, ModeCodeSandbox, ModeStory,
}

// Spec returns the fixed description of a mode.
func (m ToolMode) Spec() (ToolSpec, bool) {
	s, ok := toolSpecs[m]
	return s, ok
}

// ParseToolMode validates a mode tag.
func ParseToolMode(s string) (ToolMode, error) {
	m := ToolMode(s)
	if _, ok := toolSpecs[m]; !ok {
		return "", fmt.Errorf("unknown tool mode %q", s)
	}
	return m, nil
}

// ErrorText returns the fixed user-facing failure text for the mode.
func (m ToolMode) ErrorText() string {
	if s, ok := toolSpecs[m]; ok && s.ErrorText != "" {
		return s.ErrorText
	}
	return defaultErrorText
}
