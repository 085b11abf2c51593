package ai

// BillCategories defines the valid topical categories for bill
// classification. Classifiers must only emit values from this list,
// plus the fallback "Other".
var BillCategories = []string{
	"Healthcare",
	"Education",
	"Infrastructure",
	"Environment",
	"Finance",
	"Technology",
	"Social Services",
	"Defense",
	"Agriculture",
	"Labor",
	"Energy",
	"Transportation",
	"Justice",
	"Housing",
	"Foreign Affairs",
}

// CategoryOther is emitted when no listed category applies.
const CategoryOther = "Other"
