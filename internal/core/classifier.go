package core

import "strings"

type Category string

const (
	Groceries      Category = "groceries"
	Transportation Category = "transportation"
	Entertainment  Category = "entertainment"
	Utilities      Category = "utilities"
	Shopping       Category = "shopping"
	Dining         Category = "dining"
	Healthcare     Category = "healthcare"
	Education      Category = "education"
	Travel         Category = "travel"
	Other          Category = "other"
)

// Categories lists every category in declaration order, Other last.
var Categories = []Category{
	Groceries, Transportation, Entertainment, Utilities, Shopping,
	Dining, Healthcare, Education, Travel, Other,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Title returns the category name with its first letter upper-cased.
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// CategoryRule maps a category to the keywords that select it.
type CategoryRule struct {
	Category Category
	Keywords []string
}

// DefaultRules returns the built-in keyword table. Order matters: the first
// rule with a matching keyword wins.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{Groceries, []string{"food", "grocery", "supermarket", "market", "fresh", "organic", "produce"}},
		{Transportation, []string{"uber", "lyft", "taxi", "gas", "fuel", "parking", "metro", "bus", "train"}},
		{Entertainment, []string{"movie", "theater", "concert", "game", "netflix", "spotify", "amazon prime"}},
		{Utilities, []string{"electric", "water", "gas", "internet", "phone", "cable", "wifi"}},
		{Shopping, []string{"amazon", "walmart", "target", "clothing", "shoes", "electronics"}},
		{Dining, []string{"restaurant", "cafe", "coffee", "pizza", "burger", "sushi", "dinner", "lunch"}},
		{Healthcare, []string{"pharmacy", "doctor", "medical", "dental", "vision", "insurance"}},
		{Education, []string{"book", "course", "tuition", "school", "college", "university"}},
		{Travel, []string{"hotel", "flight", "airbnb", "vacation", "trip", "booking"}},
	}
}

// Classifier assigns a category to a free-text description by substring
// keyword matching over an ordered rule list.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier copies rules and lower-cases their keywords.
func NewClassifier(rules []CategoryRule) *Classifier {
	c := &Classifier{rules: make([]CategoryRule, 0, len(rules))}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		c.rules = append(c.rules, CategoryRule{Category: r.Category, Keywords: kws})
	}
	return c
}

var defaultClassifier = NewClassifier(DefaultRules())

// Classify uses the built-in rules.
func Classify(description string) Category {
	return defaultClassifier.Classify(description)
}

// Classify never fails; descriptions matching nothing, including the empty
// string, fall into Other.
func (c *Classifier) Classify(description string) Category {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, k := range r.Keywords {
			if strings.Contains(desc, k) {
				return r.Category
			}
		}
	}
	return Other
}
