package layers

import (
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/taxonomy"
)

// Category is a coarse body layer a condition can affect.
type Category string

const (
	CategorySkin       Category = "skin"
	CategoryMuscle     Category = "muscle"
	CategoryBone       Category = "bone"
	CategoryVessels    Category = "vessels"
	CategoryNerves     Category = "nerves"
	CategoryOrgans     Category = "organs"
	CategoryConnective Category = "connective"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategorySkin, CategoryMuscle, CategoryBone, CategoryVessels,
	CategoryNerves, CategoryOrgans, CategoryConnective,
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

var conditionKeywords = map[Category][]string{
	CategorySkin:       {"skin", "dermat", "rash", "eczema", "acne"},
	CategoryMuscle:     {"muscle", "myalgia", "strain", "sprain"},
	CategoryBone:       {"bone", "fracture", "osteo", "arthritis"},
	CategoryVessels:    {"vascular", "arterial", "venous", "coronary", "thrombus", "embolism", "stenosis", "dvt", "vein", "artery", "circulation"},
	CategoryNerves:     {"nerve", "neuro", "neuropathy", "neuralgia"},
	CategoryOrgans:     {"liver", "kidney", "heart", "lung", "organ"},
	CategoryConnective: {"tendon", "ligament", "fascia", "connective"},
}

var symptomKeywords = map[Category][]string{
	CategorySkin:    {"skin", "itch", "rash", "burn"},
	CategoryMuscle:  {"muscle", "cramp", "ache", "sore"},
	CategoryBone:    {"bone", "joint", "stiff"},
	CategoryVessels: {"pulse", "throb", "blood"},
	CategoryNerves:  {"tingl", "numb", "sharp", "electric"},
}

// InferConditionLayers tests the condition's mechanism, name and symptoms
// against each category. The result is never empty; organs is the default.
func InferConditionLayers(cond domain.ConditionInfo) []Category {
	text := strings.Join(append([]string{cond.Mechanism, cond.Name}, cond.Symptoms...), " ")
	return infer(text, conditionKeywords)
}

// InferPatientConditionLayers applies the same rules to a patient's own
// condition using its name and notes.
func InferPatientConditionLayers(cond domain.PatientCondition) []Category {
	return infer(cond.Name+" "+cond.Notes, conditionKeywords)
}

// InferSymptomLayers classifies a patient symptom by its description.
func InferSymptomLayers(symptom domain.PatientSymptom) []Category {
	return infer(symptom.Description, symptomKeywords)
}

func infer(text string, keywords map[Category][]string) []Category {
	var out []Category
	for _, c := range Categories {
		if taxonomy.ContainsAny(text, keywords[c]) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []Category{CategoryOrgans}
	}
	return out
}

// FilterConditionsByLayer keeps conditions whose inferred layers include
// layer, preserving order.
func FilterConditionsByLayer(conds []domain.ConditionInfo, layer Category) []domain.ConditionInfo {
	out := []domain.ConditionInfo{}
	for _, c := range conds {
		for _, l := range InferConditionLayers(c) {
			if l == layer {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Has reports whether layers contains c.
func Has(layers []Category, c Category) bool {
	for _, l := range layers {
		if l == c {
			return true
		}
	}
	return false
}
