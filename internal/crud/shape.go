package crud

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// Shape drops the fields a projection excluded from the JSON form of docs, so
// that zero values of unselected struct fields are not written out.
func Shape[T any](docs []T, projection string) (interface{}, error) {
	proj, err := store.ParseProjection(projection)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return docs, nil
	}

	out := make([]bson.M, 0, len(docs))
	for i := range docs {
		raw, err := json.Marshal(&docs[i])
		if err != nil {
			return nil, err
		}
		var m bson.M
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		out = append(out, store.Project(m, proj))
	}
	return out, nil
}
