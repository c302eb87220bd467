package session

// Mode selects the answering style the backend applies to a question.
type Mode string

// Supported answering modes.
const (
	ModeStudy    Mode = "study"
	ModeQuick    Mode = "quick"
	ModeQuiz     Mode = "quiz"
	ModeRoadmap  Mode = "roadmap"
	ModeDoubt    Mode = "doubt"
	ModeStrategy Mode = "strategy"
)

// Modes lists all supported modes in display order.
var Modes = []Mode{ModeStudy, ModeQuick, ModeQuiz, ModeRoadmap, ModeDoubt, ModeStrategy}

var modeLabels = map[Mode]string{
	ModeStudy:    "Study Focus",
	ModeQuick:    "Quick Revision",
	ModeQuiz:     "Quiz Master",
	ModeRoadmap:  "Roadmap Builder",
	ModeDoubt:    "Doubt Solver",
	ModeStrategy: "Exam Strategy",
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	_, ok := modeLabels[m]
	return ok
}

// Label returns the human-readable name for m, or the raw value when m is
// not a known mode.
func (m Mode) Label() string {
	if label, ok := modeLabels[m]; ok {
		return label
	}
	return string(m)
}
