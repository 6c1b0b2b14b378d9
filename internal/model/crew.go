package model

// CrewMember is a read-only crew row. The credential column is never loaded.
type CrewMember struct {
	CrewID      int64  `json:"crew_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Nationality string `json:"nationality"`
}
