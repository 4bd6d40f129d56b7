package store

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoFilter(t *testing.T) {
	tests := []struct {
		name  string
		conds []Condition
		want  bson.M
	}{
		{
			name:  "empty",
			conds: nil,
			want:  bson.M{},
		},
		{
			name:  "plain equality",
			conds: []Condition{Eq("resolved", true), Eq("reason", "spam")},
			want:  bson.M{"resolved": true, "reason": "spam"},
		},
		{
			name:  "range merged on one field",
			conds: []Condition{Gte("createdAt", 1), Lte("createdAt", 5)},
			want:  bson.M{"createdAt": bson.M{"$gte": 1, "$lte": 5}},
		},
		{
			name:  "not in",
			conds: []Condition{NotIn("_id", "a", "b")},
			want:  bson.M{"_id": bson.M{"$nin": bson.A{"a", "b"}}},
		},
		{
			name:  "repeated equality keeps every value",
			conds: []Condition{Eq("tags", "a"), Eq("tags", "b")},
			want:  bson.M{"tags": bson.M{"$all": bson.A{"a", "b"}}},
		},
		{
			name:  "repeated operator spills into $and",
			conds: []Condition{Gte("createdAt", 1), Gte("createdAt", 3), Lte("createdAt", 5)},
			want: bson.M{
				"createdAt": bson.M{"$gte": 1, "$lte": 5},
				"$and":      bson.A{bson.M{"createdAt": bson.M{"$gte": 3}}},
			},
		},
		{
			name:  "box",
			conds: []Condition{WithinBox("place.location.coordinates", Box{MinLng: -10, MinLat: -5, MaxLng: 10, MaxLat: 5})},
			want: bson.M{"place.location.coordinates": bson.M{"$geoWithin": bson.M{
				"$box": bson.A{bson.A{-10.0, -5.0}, bson.A{10.0, 5.0}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MongoFilter(tt.conds); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseProjection(t *testing.T) {
	if got, err := ParseProjection("  "); got != nil || err != nil {
		t.Errorf("blank projection = %v, %v; want nil", got, err)
	}

	got, err := ParseProjection("title place.location -_id")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := bson.M{"title": 1, "place.location": 1, "_id": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !isInclusion(got) {
		t.Error("excluding _id must not turn an inclusion into an exclusion")
	}

	got, err = ParseProjection("-emailAddress -externalId")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if isInclusion(got) {
		t.Error("expected an exclusion projection")
	}

	if _, err := ParseProjection("title -emailAddress"); !errors.Is(err, ErrMixedProjection) {
		t.Errorf("mixed projection: err = %v, want ErrMixedProjection", err)
	}
}
