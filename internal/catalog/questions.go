package catalog

// PredefinedQuestion is a canned yes/no question clients pick from.
type PredefinedQuestion struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Category  string `json:"category"`
}

// PredefinedQuestions is the full question catalog.
var PredefinedQuestions = []PredefinedQuestion{
	{ID: "q1", Question: "És home el teu personatge?", Attribute: "gender", Value: "home", Category: "gender"},
	{ID: "q2", Question: "És dona el teu personatge?", Attribute: "gender", Value: "dona", Category: "gender"},

	{ID: "q3", Question: "Té el cabell ros?", Attribute: "hairColor", Value: "ros", Category: "hair"},
	{ID: "q4", Question: "Té el cabell negre?", Attribute: "hairColor", Value: "negre", Category: "hair"},
	{ID: "q5", Question: "Té el cabell castany?", Attribute: "hairColor", Value: "castany", Category: "hair"},
	{ID: "q6", Question: "Té el cabell pel-roig?", Attribute: "hairColor", Value: "pel-roig", Category: "hair"},
	{ID: "q7", Question: "Té el cabell blanc?", Attribute: "hairColor", Value: "blanc", Category: "hair"},

	{ID: "q8", Question: "Té els ulls blaus?", Attribute: "eyeColor", Value: "blau", Category: "eyes"},
	{ID: "q9", Question: "Té els ulls marrons?", Attribute: "eyeColor", Value: "marró", Category: "eyes"},
	{ID: "q10", Question: "Té els ulls verds?", Attribute: "eyeColor", Value: "verd", Category: "eyes"},

	{ID: "q11", Question: "Porta barba?", Attribute: "hasBeard", Value: "true", Category: "accessories"},
	{ID: "q12", Question: "No porta barba?", Attribute: "hasBeard", Value: "false", Category: "accessories"},
	{ID: "q13", Question: "Porta ulleres?", Attribute: "hasGlasses", Value: "true", Category: "accessories"},
	{ID: "q14", Question: "No porta ulleres?", Attribute: "hasGlasses", Value: "false", Category: "accessories"},
	{ID: "q15", Question: "Porta barret?", Attribute: "hasHat", Value: "true", Category: "accessories"},
	{ID: "q16", Question: "No porta barret?", Attribute: "hasHat", Value: "false", Category: "accessories"},
}
