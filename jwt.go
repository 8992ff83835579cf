package main

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseJWT validates an HS256 token issued by the auth service and returns the
// user id from "sub", falling back to the legacy "_id" claim.
func parseJWT(secret, tokenStr string) (primitive.ObjectID, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return primitive.NilObjectID, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, errors.New("no subject")
	}
	for _, key := range []string{"sub", "_id", "id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return primitive.ObjectIDFromHex(v)
		}
	}
	return primitive.NilObjectID, errors.New("no subject")
}
