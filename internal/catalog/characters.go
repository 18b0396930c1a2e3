// Package catalog holds the static character and question datasets the
// game is played over. The data is read-only reference material; nothing
// in the server mutates it.
package catalog

import "math/rand"

// Attributes is the fixed trait set questions can target.
type Attributes struct {
	Gender     string `json:"gender"`
	HairColor  string `json:"hairColor"`
	HasBeard   bool   `json:"hasBeard"`
	HasGlasses bool   `json:"hasGlasses"`
	HasHat     bool   `json:"hasHat"`
	EyeColor   string `json:"eyeColor"`
}

// Character is one guessable identity.
type Character struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Image      string     `json:"image"`
	Attributes Attributes `json:"attributes"`
}

// Characters is the full catalog, ordered by ID.
var Characters = []Character{
	{
		ID:         1,
		Name:       "Alex",
		Image:      "https://randomuser.me/api/portraits/men/1.jpg",
		Attributes: Attributes{Gender: "home", HairColor: "negre", HasBeard: true, EyeColor: "marró"},
	},
	{
		ID:         2,
		Name:       "Sarah",
		Image:      "https://randomuser.me/api/portraits/women/2.jpg",
		Attributes: Attributes{Gender: "dona", HairColor: "ros", HasGlasses: true, EyeColor: "blau"},
	},
	{
		ID:         3,
		Name:       "Mike",
		Image:      "https://randomuser.me/api/portraits/men/3.jpg",
		Attributes: Attributes{Gender: "home", HairColor: "castany", HasGlasses: true, HasHat: true, EyeColor: "verd"},
	},
	{
		ID:         4,
		Name:       "Emily",
		Image:      "https://randomuser.me/api/portraits/women/4.jpg",
		Attributes: Attributes{Gender: "dona", HairColor: "pel-roig", HasHat: true, EyeColor: "marró"},
	},
	{
		ID:         5,
		Name:       "David",
		Image:      "https://randomuser.me/api/portraits/men/5.jpg",
		Attributes: Attributes{Gender: "home", HairColor: "blanc", HasBeard: true, HasGlasses: true, EyeColor: "blau"},
	},
	{
		ID:         6,
		Name:       "Jessica",
		Image:      "https://randomuser.me/api/portraits/women/6.jpg",
		Attributes: Attributes{Gender: "dona", HairColor: "negre", EyeColor: "marró"},
	},
	{
		ID:         7,
		Name:       "Tom",
		Image:      "https://randomuser.me/api/portraits/men/7.jpg",
		Attributes: Attributes{Gender: "home", HairColor: "ros", HasHat: true, EyeColor: "blau"},
	},
	{
		ID:         8,
		Name:       "Linda",
		Image:      "https://randomuser.me/api/portraits/women/8.jpg",
		Attributes: Attributes{Gender: "dona", HairColor: "castany", HasGlasses: true, EyeColor: "verd"},
	},
}

// ByID returns the character with the given id, or nil.
func ByID(id int) *Character {
	for i := range Characters {
		if Characters[i].ID == id {
			return &Characters[i]
		}
	}
	return nil
}

// Random draws one character uniformly at random.
func Random(rng *rand.Rand) Character {
	return Characters[rng.Intn(len(Characters))]
}

// DistinctPair draws two distinct characters uniformly at random,
// resampling the second draw until it differs from the first.
func DistinctPair(rng *rand.Rand) (Character, Character) {
	first := Random(rng)
	second := Random(rng)
	for second.ID == first.ID {
		second = Random(rng)
	}
	return first, second
}
