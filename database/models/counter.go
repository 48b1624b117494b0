package models

// Counter backs a named id sequence.
type Counter struct {
	Name  string `json:"name" bson:"_id"`
	Value uint64 `json:"value" bson:"value"`
}
