package model

// PersonRecord is one roster line as the packet server expects it.
type PersonRecord struct {
	Name        string `json:"name"`
	Onfloor     string `json:"onfloor"`
	RitUsername string `json:"rit_username"`
}

// PacketsPayload is the body of POST /api/v1/packets.
type PacketsPayload struct {
	StartDate string         `json:"start_date"`
	Freshmen  []PersonRecord `json:"freshmen"`
}
