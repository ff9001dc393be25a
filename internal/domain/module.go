package domain

// ModuleType classifies an educational module.
type ModuleType string

const (
	ModuleTypeCondition  ModuleType = "condition"
	ModuleTypeAnatomy    ModuleType = "anatomy"
	ModuleTypeProcedure  ModuleType = "procedure"
	ModuleTypeMedication ModuleType = "medication"
	ModuleTypeFoundation ModuleType = "foundation"
)

// LevelContent is the authored text for one module tier.
type LevelContent struct {
	Summary     string   `json:"summary" yaml:"summary"`
	KeyPoints   []string `json:"key_points,omitempty" yaml:"key_points"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
}

type QuizQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
}

// EducationalModule is authored course content keyed by id.
type EducationalModule struct {
	ID            string                       `json:"id" yaml:"id"`
	Title         string                       `json:"title" yaml:"title"`
	Type          ModuleType                   `json:"type" yaml:"type"`
	Specialty     string                       `json:"specialty" yaml:"specialty"`
	Prerequisites []string                     `json:"prerequisites,omitempty" yaml:"prerequisites"`
	Keywords      []string                     `json:"keywords,omitempty" yaml:"keywords"`
	Content       map[ModuleLevel]LevelContent `json:"content" yaml:"content"`
	Quiz          []QuizQuestion               `json:"quiz,omitempty" yaml:"quiz"`
}
