package models

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a gameplay operation. It is passed
// explicitly into every service call; services never look it up on their own.
type Actor struct {
	UserID uuid.UUID
}

// NewActor builds an Actor for userID.
func NewActor(userID uuid.UUID) Actor {
	return Actor{UserID: userID}
}

// ActorFromContext builds an Actor from the user placed in ctx by the auth
// middleware. The returned Actor is anonymous when no user is present.
func ActorFromContext(ctx context.Context) Actor {
	userID, _ := GetUserIDFromContext(ctx)
	return Actor{UserID: userID}
}

// Authenticated reports whether the actor carries a resolved user.
func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}
