package models

// FAQ is a curated question/answer pair used to ground chatbot answers.
type FAQ struct {
	ID       string `bson:"_id,omitempty" json:"id,omitempty"`
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}
