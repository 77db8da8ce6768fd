package evaluation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Question is one batch entry. Reference is an optional ideal answer the
// judge compares against.
type Question struct {
	Text      string `yaml:"question"`
	Reference string `yaml:"reference,omitempty"`
}

// UnmarshalYAML accepts either a bare string or a {question, reference} mapping.
func (q *Question) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		q.Text = node.Value
		return nil
	}
	type plain Question
	var p plain
	if err := node.Decode(&p); err != nil {
		return err //nolint:wrapcheck // decorated by LoadQuestions
	}
	*q = Question(p)
	return nil
}

// LoadQuestions reads a YAML list of questions from path. Blank questions
// are rejected so a typo cannot silently shrink a regression run.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evaluation: read questions %s: %w", path, err)
	}
	var qs []Question
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("evaluation: parse questions %s: %w", path, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("evaluation: %s contains no questions", path)
	}
	for i, q := range qs {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("evaluation: %s: question %d is empty", path, i+1)
		}
	}
	return qs, nil
}

// DefaultQuestions is the built-in regression set run by `chefai evaluate`.
// Its order is the order of the result file.
var DefaultQuestions = []Question{
	{Text: "Give me a vegan lasagna recipe."},
	{Text: "How do I make a classic Margherita pizza at home?"},
	{Text: "What can I cook with chicken breast, spinach and garlic?"},
	{Text: "Can I replace butter with olive oil when baking a cake?"},
	{Text: "How do I make a creamy mushroom pasta without cream?"},
	{Text: "Suggest a quick gluten-free breakfast."},
	{Text: "How long should I roast a whole chicken and at what temperature?"},
	{Text: "What is a good substitute for eggs in pancakes?"},
	{Text: "How do I make my chili spicier without making it bitter?"},
	{Text: "Give me a simple tomato soup recipe."},
	{Text: "How do I cook fluffy white rice on the stove?"},
	{Text: "What is a healthy low-calorie dinner I can make in 20 minutes?"},
	{Text: "How do I make homemade pesto?"},
	{Text: "Can you give me a recipe for chocolate chip cookies?"},
	{Text: "How do I make a vegetarian curry with chickpeas?"},
	{Text: "What side dishes go well with grilled salmon?"},
	{Text: "How do I make guacamole that stays green?"},
	{Text: "Give me a recipe for beef stir-fry with vegetables."},
	{Text: "How can I make a dairy-free mac and cheese?"},
	{Text: "What is the safest way to cook pork chops so they stay juicy?"},
	{Text: "How do I make a basic vinaigrette dressing?"},
	{Text: "Suggest a dessert that uses ripe bananas."},
	{Text: "How do I make shakshuka?"},
	{Text: "What can I make with leftover rice?"},
	{Text: "How do I make a lentil soup that freezes well?"},
	{Text: "Give me a kid-friendly dinner idea with hidden vegetables."},
	{Text: "How do I make crispy oven-baked fries?"},
	{Text: "How do I bake a simple loaf of bread without a bread machine?"},
	{Text: "What is a good marinade for grilled tofu?"},
	{Text: "How do I make a fruit smoothie high in protein without protein powder?"},
}
