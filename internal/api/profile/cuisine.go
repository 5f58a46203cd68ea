package profile

import "strings"

// cuisineRule maps name keywords to a cuisine bucket. Rules are checked in
// order and the first hit wins, so specific local dishes must sit above the
// generic buckets that would also match them.
type cuisineRule struct {
	cuisine  string
	keywords []string
}

var cuisineRules = []cuisineRule{
	{"chicken rice", []string{"chicken rice"}},
	{"char kway teow", []string{"char kway teow", "kway teow"}},
	{"hokkien mee", []string{"hokkien mee", "prawn mee"}},
	{"bak kut teh", []string{"bak kut teh"}},
	{"nasi lemak", []string{"nasi lemak"}},
	{"nasi padang", []string{"nasi padang", "padang"}},
	{"laksa", []string{"laksa"}},
	{"dim sum", []string{"dim sum", "dimsum"}},
	{"ramen", []string{"ramen"}},
	{"sushi", []string{"sushi", "omakase", "sashimi"}},
	{"japanese", []string{"izakaya", "yakitori", "udon", "tempura", "donburi"}},
	{"korean", []string{"korean", "kbbq", "bibimbap", "bulgogi", "jjigae"}},
	{"thai", []string{"thai", "tom yum", "mookata"}},
	{"vietnamese", []string{"vietnamese", "pho", "banh mi"}},
	{"indian", []string{"indian", "prata", "briyani", "biryani", "thosai", "tandoori"}},
	{"malay", []string{"malay", "satay", "rendang", "mee rebus", "mee soto"}},
	{"peranakan", []string{"peranakan", "nyonya"}},
	{"zi char", []string{"zi char", "zichar", "cze char"}},
	{"hotpot", []string{"hotpot", "hot pot", "steamboat", "shabu"}},
	{"seafood", []string{"seafood", "crab", "oyster", "fish head"}},
	{"italian", []string{"italian", "pizza", "pasta", "trattoria", "osteria"}},
	{"french", []string{"french", "brasserie"}},
	{"mexican", []string{"mexican", "taco", "burrito"}},
	{"western", []string{"steak", "burger", "grill", "bistro"}},
	{"chinese", []string{"szechuan", "sichuan", "cantonese", "dumpling", "noodle"}},
	{"vegetarian", []string{"vegetarian", "vegan", "salad"}},
	{"cafe", []string{"cafe", "coffee", "brunch", "toast", "kopitiam"}},
	{"dessert", []string{"dessert", "ice cream", "gelato", "bingsu", "patisserie", "bakery"}},
	{"bar", []string{"bar", "brewery", "taproom", "wine"}},
}

// ClassifyCuisine resolves a place to a cuisine bucket. An authoritative
// label on the saved entry wins outright; otherwise the name is scanned
// against the keyword table. Returns "" when nothing matches, which excludes
// the place from cuisine rating aggregation.
func ClassifyCuisine(cuisineLabel *string, name string) string {
	if cuisineLabel != nil {
		if label := normalizeCuisine(*cuisineLabel); label != "" {
			return label
		}
	}
	lowered := strings.ToLower(name)
	for _, rule := range cuisineRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.cuisine
			}
		}
	}
	return ""
}

func normalizeCuisine(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
