package ledger

// Category is the closed set of transaction categories the backend assigns.
// Values outside the set are kept as-is so they stay visible; only Display folds them.
type Category string

const (
	CategoryMeals          Category = "meals"
	CategoryTravel         Category = "travel"
	CategoryOfficeSupplies Category = "office_supplies"
	CategoryUtilities      Category = "utilities"
	CategoryEntertainment  Category = "entertainment"
	CategoryHealthcare     Category = "healthcare"
	CategoryOther          Category = "other"
)

// Categories returns every known category in display order
func Categories() []Category {
	return []Category{
		CategoryMeals,
		CategoryTravel,
		CategoryOfficeSupplies,
		CategoryUtilities,
		CategoryEntertainment,
		CategoryHealthcare,
		CategoryOther,
	}
}

// Known reports whether c is one of the enumerated categories
func (c Category) Known() bool {
	_, ok := lookupDisplay(c)
	return ok
}

// DisplayInfo is the presentation metadata for a category
type DisplayInfo struct {
	Label string
	Icon  string
}

func lookupDisplay(c Category) (DisplayInfo, bool) {
	switch c {
	case CategoryMeals:
		return DisplayInfo{Label: "Meals", Icon: "🍽️"}, true
	case CategoryTravel:
		return DisplayInfo{Label: "Travel", Icon: "✈️"}, true
	case CategoryOfficeSupplies:
		return DisplayInfo{Label: "Office Supplies", Icon: "📎"}, true
	case CategoryUtilities:
		return DisplayInfo{Label: "Utilities", Icon: "⚡"}, true
	case CategoryEntertainment:
		return DisplayInfo{Label: "Entertainment", Icon: "🎬"}, true
	case CategoryHealthcare:
		return DisplayInfo{Label: "Healthcare", Icon: "🏥"}, true
	case CategoryOther:
		return DisplayInfo{Label: "Other", Icon: "📦"}, true
	}
	return DisplayInfo{}, false
}

// Display returns presentation metadata. Unknown categories render as "other".
func (c Category) Display() DisplayInfo {
	if info, ok := lookupDisplay(c); ok {
		return info
	}
	info, _ := lookupDisplay(CategoryOther)
	return info
}
