package cafe

import "strings"

// Field names as they appear in update requests and diff views.
const (
	FieldName         = "name"
	FieldLocation     = "location"
	FieldCoffeePrice  = "coffee_price"
	FieldSeats        = "seats"
	FieldMapURL       = "map_url"
	FieldImgURL       = "img_url"
	FieldHasToilet    = "has_toilet"
	FieldHasWifi      = "has_wifi"
	FieldHasSockets   = "has_sockets"
	FieldCanTakeCalls = "can_take_calls"
)

// Proposal is a set of independently optional field changes. A nil string
// or an unset Flag leaves the corresponding cafe field untouched.
type Proposal struct {
	Name        *string
	Location    *string
	CoffeePrice *string
	Seats       *string
	MapURL      *string
	ImgURL      *string

	HasToilet    Flag
	HasWifi      Flag
	HasSockets   Flag
	CanTakeCalls Flag
}

// FieldDiff pairs a cafe's current value with the proposed one. Proposed is
// nil when the field is not part of the proposal.
type FieldDiff struct {
	Field    string `json:"field"`
	Original any    `json:"original"`
	Proposed any    `json:"proposed,omitempty"`
}

// Normalize drops whitespace-only strings so they count as unset.
func (p Proposal) Normalize() Proposal {
	for _, s := range []**string{&p.Name, &p.Location, &p.CoffeePrice, &p.Seats, &p.MapURL, &p.ImgURL} {
		if *s != nil && strings.TrimSpace(**s) == "" {
			*s = nil
		}
	}
	return p
}

// IsEmpty reports whether no field is set.
func (p Proposal) IsEmpty() bool {
	return p.Name == nil && p.Location == nil && p.CoffeePrice == nil &&
		p.Seats == nil && p.MapURL == nil && p.ImgURL == nil &&
		!p.HasToilet.IsSet() && !p.HasWifi.IsSet() && !p.HasSockets.IsSet() && !p.CanTakeCalls.IsSet()
}

// ApplyTo returns a copy of c with every set field of p copied over.
func (p Proposal) ApplyTo(c Cafe) Cafe {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.CoffeePrice != nil {
		v := *p.CoffeePrice
		c.CoffeePrice = &v
	}
	if p.Seats != nil {
		c.Seats = *p.Seats
	}
	if p.MapURL != nil {
		c.MapURL = *p.MapURL
	}
	if p.ImgURL != nil {
		c.ImgURL = *p.ImgURL
	}
	c.Amenities.HasToilet = p.HasToilet.Or(c.Amenities.HasToilet)
	c.Amenities.HasWifi = p.HasWifi.Or(c.Amenities.HasWifi)
	c.Amenities.HasSockets = p.HasSockets.Or(c.Amenities.HasSockets)
	c.Amenities.CanTakeCalls = p.CanTakeCalls.Or(c.Amenities.CanTakeCalls)
	return c
}

// Diff lists all ten fields in a fixed order.
func (p Proposal) Diff(c Cafe) []FieldDiff {
	var price any
	if c.CoffeePrice != nil {
		price = *c.CoffeePrice
	}
	return []FieldDiff{
		{Field: FieldName, Original: c.Name, Proposed: stringValue(p.Name)},
		{Field: FieldLocation, Original: c.Location, Proposed: stringValue(p.Location)},
		{Field: FieldCoffeePrice, Original: price, Proposed: stringValue(p.CoffeePrice)},
		{Field: FieldSeats, Original: c.Seats, Proposed: stringValue(p.Seats)},
		{Field: FieldMapURL, Original: c.MapURL, Proposed: stringValue(p.MapURL)},
		{Field: FieldImgURL, Original: c.ImgURL, Proposed: stringValue(p.ImgURL)},
		{Field: FieldHasToilet, Original: c.Amenities.HasToilet, Proposed: flagValue(p.HasToilet)},
		{Field: FieldHasWifi, Original: c.Amenities.HasWifi, Proposed: flagValue(p.HasWifi)},
		{Field: FieldHasSockets, Original: c.Amenities.HasSockets, Proposed: flagValue(p.HasSockets)},
		{Field: FieldCanTakeCalls, Original: c.Amenities.CanTakeCalls, Proposed: flagValue(p.CanTakeCalls)},
	}
}

// stringValue and flagValue return an untyped nil for unset fields so that
// the interface compares equal to nil.
func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func flagValue(f Flag) any {
	if !f.IsSet() {
		return nil
	}
	return f == FlagTrue
}
