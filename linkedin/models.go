package linkedin

import "time"

type Person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Name is the display name, "First Last".
func (p Person) Name() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Group struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	ShortDescription string `json:"shortDescription"`
}

type Post struct {
	ID           string    `json:"id"`
	GroupID      string    `json:"groupId"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Creator      Person    `json:"creator"`
	CreationTime time.Time `json:"creationTime"`
}

type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	Text         string    `json:"text"`
	Creator      Person    `json:"creator"`
	CreationTime time.Time `json:"creationTime"`
}
