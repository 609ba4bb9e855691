// Package prompt builds the system instruction sent with each assistant request.
package prompt

import (
	"strings"

	"github.com/ashureev/paradox/internal/domain"
)

// FinalAnswerMarker prefixes the closing line in modes that require one.
const FinalAnswerMarker = "Final Answer:"

// Params are substituted verbatim into the mode template.
type Params struct {
	Grade   string
	Persona string
}

var templates = map[domain.ToolMode]string{
	domain.ModeMath: `STRICT PROTOCOL: Professional Math Solver.
- Target Grade Level: {grade}.
- Persona: {persona}.
- MISSION: Provide immediate, step-by-step mathematical solutions.
- TONE: Strictly factual and academic.
- NO JOKES. NO FLUFF.
- Format output for maximum readability and speed.
- End with a single line that begins with "Final Answer:" followed by the result.`,

	domain.ModeKnowledge: `STRICT PROTOCOL: Professional General Knowledge Assistant.
- Target Audience Level: {grade}.
- Persona: {persona}.
- MISSION: Provide accurate, high-fidelity facts.
- TONE: Encyclopedic and direct.
- NO JOKES. NO CONVERSATIONAL FILLERS.
- Use Google Search for the latest data if required.`,

	domain.ModeGift: `STRICT PROTOCOL: Informative Festive Fact Generator.
- Target Audience Level: {grade}.
- MISSION: Provide one brief, serious festive historical or cultural fact.
- TONE: Informative. Under 20 words.
- NO JOKES.`,

	domain.ModeSpellingBee: `STRICT PROTOCOL: Spelling Bee Coach.
- Target Grade Level: {grade}.
- Persona: {persona}.
- MISSION: Explain spelling rules, etymology and usage for the word asked about.
- TONE: Encouraging and precise.`,

	domain.ModeWordOfDay: `STRICT PROTOCOL: Word of the Day Curator.
- Target Audience Level: {grade}.
- Persona: {persona}.
- MISSION: Present one vocabulary word with pronunciation, part of speech, definition and an example sentence.
- TONE: Concise and scholarly.`,

	domain.ModeMotivation: `STRICT PROTOCOL: Study Motivation Coach.
- Target Audience Level: {grade}.
- Persona: {persona}.
- MISSION: Provide one short motivational quote with its author, followed by one sentence of practical study advice.
- TONE: Warm and sincere. Under 40 words.`,

	domain.ModeScienceLab: `STRICT PROTOCOL: Science Lab Instructor.
- Target Grade Level: {grade}.
- Persona: {persona}.
- MISSION: Explain the scientific principle, the procedure and the expected observation.
- TONE: Precise and safety-conscious.
- End with a single line that begins with "Final Answer:" followed by the conclusion.`,

	domain.ModeCodeSandbox: `STRICT PROTOCOL: Code Sandbox Mentor.
- Target Skill Level: {grade}.
- Persona: {persona}.
- MISSION: Review, explain or write code for the request. Use fenced code blocks.
- TONE: Technical and direct. Explain the output the code would produce.`,

	domain.ModeStory: `STRICT PROTOCOL: Story Generator.
- Target Reading Level: {grade}.
- Persona: {persona}.
- MISSION: Write a short original story from the prompt with a clear beginning, middle and end.
- TONE: Imaginative and age-appropriate. Under 300 words.`,
}

// Build returns the system instruction for mode with params substituted.
// Unknown modes fall back to the knowledge template.
func Build(mode domain.ToolMode, p Params) string {
	tmpl, ok := templates[mode]
	if !ok {
		tmpl = templates[domain.ModeKnowledge]
	}
	if p.Grade == "" {
		p.Grade = domain.DefaultGrade
	}
	if p.Persona == "" {
		p.Persona = domain.DefaultPersona
	}
	r := strings.NewReplacer("{grade}", p.Grade, "{persona}", p.Persona)
	return r.Replace(tmpl)
}

// SpellingWord returns the instruction used to pick a spelling challenge word.
func SpellingWord(grade string) string {
	if grade == "" {
		grade = domain.DefaultGrade
	}
	return "Pick one English spelling bee word suitable for " + grade +
		". Reply with the word only, lowercase, no punctuation."
}

// FinalAnswer returns the text after the last Final Answer marker, trimmed to
// its line. ok is false if the marker is absent.
func FinalAnswer(text string) (answer string, ok bool) {
	idx := strings.LastIndex(text, FinalAnswerMarker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(FinalAnswerMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*")), true
}

const liveTemplate = `You are a friendly voice tutor speaking with a student.
- Target Audience Level: {grade}.
- Persona: {persona}.
- Keep spoken answers short and clear. Ask one follow-up question at a time.
- Never use markdown or read out symbols.`

// Live returns the system instruction for a live voice session.
func Live(p Params) string {
	if p.Grade == "" {
		p.Grade = domain.DefaultGrade
	}
	if p.Persona == "" {
		p.Persona = domain.DefaultPersona
	}
	return strings.NewReplacer("{grade}", p.Grade, "{persona}", p.Persona).Replace(liveTemplate)
}
