package reference

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Building is a site location.
type Building struct {
	BuildingID uuid.UUID `json:"buildingId"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Inactive   bool      `json:"inactive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Room belongs to a building.
type Room struct {
	RoomID     uuid.UUID `json:"roomId"`
	BuildingID uuid.UUID `json:"buildingId"`
	Name       string    `json:"name"`
	Inactive   bool      `json:"inactive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Category classifies a request.
type Category struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
	Inactive   bool      `json:"inactive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Subcategory refines a category.
type Subcategory struct {
	SubcategoryID uuid.UUID `json:"subcategoryId"`
	CategoryID    uuid.UUID `json:"categoryId"`
	Name          string    `json:"name"`
	Inactive      bool      `json:"inactive"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 120 {
		return errors.New("name must be at most 120 characters")
	}
	return nil
}
