package models

// CatalogEntry is one predefined equipment type that can be added to the
// inventory without typing it out by hand.
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
}

// DefaultCatalog lists common home-care equipment. Entries are created with
// zero stock when applied; the inventory itself starts empty.
var DefaultCatalog = []CatalogEntry{
	// Mobility
	{"Electric bed", "Articulated electric bed with remote", "mobility", "🛏️"},
	{"Manual bed", "Articulated manual bed", "mobility", "🛏️"},
	{"Wheelchair", "Standard manual wheelchair", "mobility", "♿"},
	{"Electric wheelchair", "Powered wheelchair", "mobility", "♿"},
	{"Walker", "Adjustable aluminium walker", "mobility", "🚶"},
	{"Rollator", "Walker with four wheels and brakes", "mobility", "🚶"},
	{"Crutches", "Pair of adjustable crutches", "mobility", "🦯"},
	{"Cane", "Single-point cane", "mobility", "🦯"},
	{"Quad cane", "Cane with a four-point base", "mobility", "🦯"},
	// Bathroom
	{"Shower chair", "Shower chair with backrest", "bathroom", "🚿"},
	{"Shower stool", "Stool without backrest", "bathroom", "🚿"},
	{"Raised toilet seat", "Toilet seat riser", "bathroom", "🚽"},
	{"Grab bars", "Set of bathroom grab bars", "bathroom", "🛁"},
	// Transfer
	{"Patient lift", "Hoist for patient transfers", "transfer", "🏗️"},
	{"Transfer board", "Board for sliding transfers", "transfer", "📏"},
	{"Sling", "Sling for patient lift", "transfer", "🎽"},
	{"Transfer belt", "Gait and transfer belt", "transfer", "🎽"},
	// Mattresses and posture
	{"Pressure relief mattress", "Alternating air mattress", "bed", "🛏️"},
	{"Memory foam mattress", "Viscoelastic mattress", "bed", "🛏️"},
	{"Pressure relief cushion", "Air or gel seat cushion", "bed", "🪑"},
	{"Positioning wedge", "Foam positioning wedge", "bed", "📐"},
	{"Bed rails", "Safety bed rails", "bed", "🛡️"},
	// Respiratory
	{"Nebulizer", "Electric nebulizer", "respiratory", "💨"},
	{"Suction unit", "Secretion suction unit", "respiratory", "🫁"},
	{"Pulse oximeter", "Fingertip pulse oximeter", "respiratory", "💓"},
	// Feeding
	{"Spill-proof cup", "Cup with lid and spout", "feeding", "🥤"},
	{"High-rim plate", "Plate with raised edges", "feeding", "🍽️"},
	{"Adapted cutlery", "Cutlery with wide grips", "feeding", "🍴"},
	// Other
	{"Overbed table", "Table for use over a bed", "other", "🛏️"},
	{"Magnifier", "Hand-held magnifier", "other", "🔍"},
	{"Call bell", "Bedside call bell", "other", "🔔"},
}
