package catalog

import "time"

// Exercise is an immutable catalog entry, reference data shared by all
// users.
type Exercise struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Force            string    `json:"force,omitempty"`
	Level            string    `json:"level,omitempty"`
	Mechanic         string    `json:"mechanic,omitempty"`
	Equipment        string    `json:"equipment,omitempty"`
	PrimaryMuscles   []string  `json:"primaryMuscles"`
	SecondaryMuscles []string  `json:"secondaryMuscles,omitempty"`
	Instructions     []string  `json:"instructions,omitempty"`
	Category         string    `json:"category"`
	CreatedAt        time.Time `json:"createdAt"`
}
