package cafe

import "time"

// Amenities groups the boolean facilities a cafe offers.
type Amenities struct {
	HasToilet    bool `json:"has_toilet"`
	HasWifi      bool `json:"has_wifi"`
	HasSockets   bool `json:"has_sockets"`
	CanTakeCalls bool `json:"can_take_calls"`
}

// Cafe is a single directory entry. Revision increases on every write.
type Cafe struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MapURL      string    `json:"map_url"`
	ImgURL      string    `json:"img_url"`
	Location    string    `json:"location"`
	Seats       string    `json:"seats"`
	Amenities   Amenities `json:"amenities"`
	CoffeePrice *string   `json:"coffee_price"`
	Revision    int64     `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCafe is what the caller provides to add a cafe to the directory.
type NewCafe struct {
	Name        string
	MapURL      string
	ImgURL      string
	Location    string
	Seats       string
	Amenities   Amenities
	CoffeePrice *string
}
