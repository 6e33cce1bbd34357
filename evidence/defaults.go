package evidence

// Defaults returns the predefined fields for a category. They seed a client's
// configuration on first access and stand in when the store is unreachable.
func Defaults(p ProblemType) []Config {
	var specs []Config
	switch p {
	case ProblemItemNotReceived:
		specs = []Config{
			{Key: "checked_with_neighbors", Label: "I checked with my neighbors", Type: TypeCheckbox, IsRequired: true},
			{Key: "checked_reception", Label: "I checked with my building reception or concierge", Type: TypeCheckbox, IsRequired: true},
			{Key: "checked_mailbox", Label: "I checked my mailbox and parcel locker", Type: TypeCheckbox, IsRequired: true},
			{Key: "delivery_notes", Label: "Anything else we should know about the delivery?", Type: TypeTextarea},
		}
	case ProblemDamagedItem:
		specs = []Config{
			{Key: "damage_description", Label: "Describe the damage", Type: TypeTextarea, IsRequired: true},
			{Key: "damage_photo", Label: "Photo of the damaged item", Type: TypeFile, IsRequired: true},
			{Key: "packaging_photo", Label: "Photo of the packaging", Type: TypeFile},
			{Key: "packaging_condition", Label: "Condition of the packaging", Type: TypeRadio, Options: []string{"Intact", "Dented", "Torn", "Wet"}},
		}
	case ProblemWrongItem:
		specs = []Config{
			{Key: "received_item", Label: "What did you receive?", Type: TypeText, IsRequired: true},
			{Key: "received_photo", Label: "Photo of the item received", Type: TypeFile, IsRequired: true},
		}
	case ProblemNotAsDescribed:
		specs = []Config{
			{Key: "difference", Label: "How does the item differ from the description?", Type: TypeTextarea, IsRequired: true},
			{Key: "difference_kind", Label: "Main issue", Type: TypeSelect, Options: []string{"Size", "Color", "Material", "Quality", "Functionality", "Other"}, IsRequired: true},
			{Key: "item_photo", Label: "Photo of the item", Type: TypeFile},
		}
	case ProblemUnauthorized:
		specs = []Config{
			{Key: "recognizes_merchant", Label: "Do you recognize this store?", Type: TypeRadio, Options: []string{"Yes", "No"}, IsRequired: true},
			{Key: "card_in_possession", Label: "My card is still in my possession", Type: TypeCheckbox},
			{Key: "details", Label: "Tell us what happened", Type: TypeTextarea, IsRequired: true},
		}
	default:
		specs = []Config{
			{Key: "description", Label: "Describe the problem", Type: TypeTextarea, IsRequired: true},
			{Key: "attachment", Label: "Supporting file", Type: TypeFile},
		}
	}

	out := make([]Config, len(specs))
	for i, c := range specs {
		c.ProblemType = p
		c.IsVisible = true
		c.SortOrder = (i + 1) * 10
		out[i] = c
	}
	return out
}
