package services

import "go.mongodb.org/mongo-driver/bson/primitive"

func parseID(value, field string) (primitive.ObjectID, error) {
	if value == "" {
		return primitive.NilObjectID, invalid(field + " is required")
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, invalid(field + " is malformed")
	}
	return id, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
