package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type" validate:"eq=Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"len=2"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Place is where an experience happened: a free-form address blob as returned
// by the client's geocoder plus the point used for map queries.
type Place struct {
	Address  map[string]interface{} `json:"address,omitempty" bson:"address,omitempty"`
	Location GeoPoint               `json:"location" bson:"location" validate:"required"`
}

// Experience is a geotagged food memory posted by a user.
type Experience struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title" validate:"required,max=200"`
	Place          Place              `json:"place" bson:"place" validate:"required"`
	Description    string             `json:"description" bson:"description" validate:"required"`
	Recipe         string             `json:"recipe,omitempty" bson:"recipe,omitempty"`
	FoodPhotoURL   string             `json:"foodPhotoUrl,omitempty" bson:"foodPhotoUrl,omitempty"`
	PersonPhotoURL string             `json:"personPhotoUrl,omitempty" bson:"personPhotoUrl,omitempty"`
	Descriptors    []string           `json:"descriptors,omitempty" bson:"descriptors,omitempty" validate:"max=20,dive,max=50"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	ExperienceDate string             `json:"experienceDate" bson:"experienceDate" validate:"required,calendardate"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
}

func (e *Experience) GetID() primitive.ObjectID   { return e.ID }
func (e *Experience) SetID(id primitive.ObjectID) { e.ID = id }
func (e *Experience) OwnerID() primitive.ObjectID { return e.UserID }
