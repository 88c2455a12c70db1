package persona

import (
	_ "embed"
	"sort"
	"strings"
)

var (
	//go:embed template/hotel.txt
	hotelRaw string

	//go:embed template/restaurant.txt
	restaurantRaw string

	//go:embed template/gym.txt
	gymRaw string

	//go:embed template/real_estate.txt
	realEstateRaw string

	//go:embed template/salon.txt
	salonRaw string
)

// Persona is the static identity a session converses with. Content is
// compile-time embedded; the catalog is read-only.
type Persona struct {
	ID           string
	Name         string
	Greeting     string
	SystemPrompt string
}

const DefaultID = "hotel"

var catalog = map[string]Persona{
	"hotel": {
		ID:           "hotel",
		Name:         "Grandview Hotel",
		Greeting:     "Thank you for calling the Grandview Hotel, this is Maya. How can I help you today?",
		SystemPrompt: strings.TrimSpace(hotelRaw),
	},
	"restaurant": {
		ID:           "restaurant",
		Name:         "Pausa Bar & Cookhouse",
		Greeting:     "Thanks for calling Pausa Bar & Cookhouse, this is Sofia. What can I do for you?",
		SystemPrompt: strings.TrimSpace(restaurantRaw),
	},
	"gym": {
		ID:           "gym",
		Name:         "Ironworks Fitness",
		Greeting:     "Ironworks Fitness, Marcus speaking. How can I help?",
		SystemPrompt: strings.TrimSpace(gymRaw),
	},
	"real_estate": {
		ID:           "real_estate",
		Name:         "Keystone Realty",
		Greeting:     "Keystone Realty, this is Priya. What are you looking for today?",
		SystemPrompt: strings.TrimSpace(realEstateRaw),
	},
	"salon": {
		ID:           "salon",
		Name:         "Luxe Salon & Spa",
		Greeting:     "Luxe Salon & Spa, Elena here. How can I help you?",
		SystemPrompt: strings.TrimSpace(salonRaw),
	},
}

// Lookup returns the persona for a business id, falling back to the default
// when the id is unknown.
func Lookup(businessID string) Persona {
	if p, ok := catalog[strings.ToLower(strings.TrimSpace(businessID))]; ok {
		return p
	}
	return catalog[DefaultID]
}

// IDs returns the known business ids, sorted.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Catalog returns a copy of the persona table.
func Catalog() map[string]Persona {
	out := make(map[string]Persona, len(catalog))
	for id, p := range catalog {
		out[id] = p
	}
	return out
}
