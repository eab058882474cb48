package router

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Keywords holds the keyword sets for each classification step.
// Entries with a space are matched as whole phrases.
type Keywords struct {
	Greetings        []string `yaml:"greetings"`
	Report           []string `yaml:"report"`
	Inventory        []string `yaml:"inventory"`
	Financial        []string `yaml:"financial"`
	HealthAssessment []string `yaml:"health_assessment"`
	FitnessPlan      []string `yaml:"fitness_plan"`
	NutritionAdvice  []string `yaml:"nutrition_advice"`
}

// DefaultKeywords returns the built-in keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Greetings: []string{"hello", "hi", "hey", "greetings", "howdy", "good morning", "good afternoon", "good evening"},
		Report:    []string{"report", "summary", "summarize", "statistics", "stats", "my activity", "document"},
		Inventory: []string{"inventory", "stock", "in stock", "available products", "availability", "catalog"},
		Financial: []string{"buy", "purchase", "order", "pay", "payment", "checkout", "receipt", "confirm", "cancel"},
		HealthAssessment: []string{
			"assessment", "assess", "symptom", "symptoms", "blood pressure", "cholesterol", "testosterone",
			"checkup", "check-up", "health risk", "heart rate",
		},
		FitnessPlan: []string{
			"workout", "workouts", "exercise", "training plan", "fitness plan", "routine", "gym", "strength",
			"cardio", "squat", "squats", "deadlift", "running",
		},
		NutritionAdvice: []string{
			"nutrition", "diet", "meal", "meals", "calories", "protein intake", "macros", "recipe", "eat", "eating",
		},
	}
}

// LoadKeywords reads keyword sets from a YAML file. Sets missing from the
// file keep their defaults. An empty path returns the defaults.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if strings.TrimSpace(path) == "" {
		return kw, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("read router keywords: %w", err)
	}

	var file Keywords
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Keywords{}, fmt.Errorf("parse router keywords: %w", err)
	}

	override := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = normalizeSet(src)
		}
	}
	override(&kw.Greetings, file.Greetings)
	override(&kw.Report, file.Report)
	override(&kw.Inventory, file.Inventory)
	override(&kw.Financial, file.Financial)
	override(&kw.HealthAssessment, file.HealthAssessment)
	override(&kw.FitnessPlan, file.FitnessPlan)
	override(&kw.NutritionAdvice, file.NutritionAdvice)
	return kw, nil
}

func normalizeSet(words []string) []string {
	return lo.Uniq(lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.Join(tokenize(w), " ")
		return w, w != ""
	}))
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, apostrophe or hyphen.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

// Matcher checks a message against keyword sets.
type Matcher struct {
	tokens []string
	joined string
}

// NewMatcher tokenizes text once for repeated lookups.
func NewMatcher(text string) Matcher {
	tokens := tokenize(text)
	return Matcher{tokens: tokens, joined: " " + strings.Join(tokens, " ") + " "}
}

// Any reports whether any keyword occurs in the message.
func (m Matcher) Any(keywords []string) bool {
	return lo.SomeBy(keywords, func(kw string) bool {
		if strings.Contains(kw, " ") {
			return strings.Contains(m.joined, " "+kw+" ")
		}
		return lo.Contains(m.tokens, kw)
	})
}

// First returns the first keyword, in list order, that occurs in the message.
func (m Matcher) First(keywords []string) (string, bool) {
	return lo.Find(keywords, func(kw string) bool {
		return m.Any([]string{kw})
	})
}
